package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMemoryBackend_InterfaceCompliance(t *testing.T) {
	var _ StorageBackend = (*MemoryBackend)(nil)
	var _ StorageBackend = (*DiskBackend)(nil)
	var _ StorageBackend = (*S3Backend)(nil)
}

func TestMemoryBackend_Save_MultipleConcurrent(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	var wg sync.WaitGroup
	errChan := make(chan error, 5)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := []byte(strings.Repeat("x", n*100))
			_, err := backend.Save(ctx, bytes.NewReader(content), SaveOptions{
				Path: Key("ND", fmt.Sprintf("concurrent-%d.txt", n)),
			})
			if err != nil {
				errChan <- err
			}
		}(i + 1)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Errorf("Concurrent Save failed: %v", err)
	}

	files, err := backend.List(ctx, "ND")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 5 {
		t.Errorf("Expected 5 files, got %d", len(files))
	}
}

func TestMemoryBackend_Clear(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	if _, err := backend.Save(ctx, strings.NewReader("x"), SaveOptions{Path: "ND/x.txt"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backend.Clear()

	if _, err := backend.Open(ctx, "ND/x.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after Clear error = %v, want ErrNotFound", err)
	}
}
