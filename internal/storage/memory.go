package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/liamg/memoryfs"
)

// MemoryBackend implements StorageBackend using an in-memory filesystem.
// Useful for integration testing without disk I/O.
// Thread-safe for concurrent use.
type MemoryBackend struct {
	fs *memoryfs.FS
	mu sync.RWMutex // Protects fs operations
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		fs: memoryfs.New(),
	}
}

// Save stores content at opts.Path, replacing any previous content.
func (m *MemoryBackend) Save(ctx context.Context, r io.Reader, opts SaveOptions) (SaveResult, error) {
	key, err := cleanKey(opts.Path)
	if err != nil {
		return SaveResult{}, err
	}

	// memoryfs.WriteFile requires complete content, so buffer while hashing
	hasher := sha256.New()
	var buf bytes.Buffer
	writer := io.MultiWriter(&buf, hasher)

	copyBuf := make([]byte, copyBufferSize)
	size, err := io.CopyBuffer(writer, r, copyBuf)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to read content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if dir := path.Dir(key); dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return SaveResult{}, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := m.fs.WriteFile(key, buf.Bytes(), 0644); err != nil {
		return SaveResult{}, fmt.Errorf("failed to write file: %w", err)
	}

	return SaveResult{
		Path: key,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
		Size: size,
	}, nil
}

// Open returns a reader for the file at the given path.
func (m *MemoryBackend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	content, err := m.fs.ReadFile(key)
	m.mu.RUnlock()
	if err != nil {
		if isNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

// Delete removes a file. Returns nil if file doesn't exist (idempotent).
func (m *MemoryBackend) Delete(ctx context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	err = m.fs.Remove(key)
	m.mu.Unlock()
	if err != nil && !isNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Stat returns file metadata without opening it.
func (m *MemoryBackend) Stat(ctx context.Context, p string) (FileInfo, error) {
	key, err := cleanKey(p)
	if err != nil {
		return FileInfo{}, err
	}
	m.mu.RLock()
	info, err := m.fs.Stat(key)
	m.mu.RUnlock()
	if err != nil {
		if isNotExist(err) {
			return FileInfo{}, ErrNotFound
		}
		return FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return FileInfo{}, ErrNotFound
	}

	return FileInfo{
		Path:    key,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// List returns the files directly inside dir.
func (m *MemoryBackend) List(ctx context.Context, dir string) ([]FileInfo, error) {
	key, err := cleanKey(dir)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := m.fs.ReadDir(key)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    key + "/" + entry.Name(),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// HealthCheck always succeeds; there is nothing external to reach.
func (m *MemoryBackend) HealthCheck(ctx context.Context) error {
	return nil
}

// ValidateAccess always succeeds; there are no permissions to check.
func (m *MemoryBackend) ValidateAccess(ctx context.Context) error {
	return nil
}

// Clear removes all files from the memory backend.
func (m *MemoryBackend) Clear() {
	m.mu.Lock()
	m.fs = memoryfs.New()
	m.mu.Unlock()
}

// isNotExist checks if an error indicates the file doesn't exist.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	// memoryfs wraps errors, so check the error message
	errStr := err.Error()
	return strings.Contains(errStr, "file does not exist") ||
		strings.Contains(errStr, "no such file")
}
