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
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DiskBackend implements StorageBackend using the local filesystem.
// It uses os.Root for sandboxed file operations, preventing path traversal attacks.
type DiskBackend struct {
	root     *os.Root
	basePath string
}

// NewDiskBackend creates a new disk-based storage backend.
// The basePath directory will be created if it doesn't exist.
func NewDiskBackend(basePath string) (*DiskBackend, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	root, err := os.OpenRoot(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage root: %w", err)
	}

	return &DiskBackend{
		root:     root,
		basePath: basePath,
	}, nil
}

// Save writes content to opts.Path, creating the owner directory on first use.
// Content is staged in a hidden temp file and renamed over any existing file.
func (d *DiskBackend) Save(ctx context.Context, r io.Reader, opts SaveOptions) (SaveResult, error) {
	key, err := cleanKey(opts.Path)
	if err != nil {
		return SaveResult{}, err
	}

	dir, name := path.Split(key)
	if dir != "" {
		if err := d.root.MkdirAll(strings.TrimSuffix(dir, "/"), 0755); err != nil {
			return SaveResult{}, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmpName := dir + "." + name + "." + uuid.New().String() + ".tmp"
	file, err := d.root.Create(tmpName)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to create file: %w", err)
	}

	hasher := sha256.New()
	writer := io.MultiWriter(file, hasher)
	buf := make([]byte, copyBufferSize)

	size, err := io.CopyBuffer(writer, r, buf)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		d.root.Remove(tmpName)
		return SaveResult{}, fmt.Errorf("failed to write file: %w", err)
	}

	if err := d.root.Rename(tmpName, key); err != nil {
		d.root.Remove(tmpName)
		return SaveResult{}, fmt.Errorf("failed to store file: %w", err)
	}

	return SaveResult{
		Path: key,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
		Size: size,
	}, nil
}

// Open returns a reader for the file at the given path.
func (d *DiskBackend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}
	file, err := d.root.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a file. Returns nil if file doesn't exist (idempotent).
func (d *DiskBackend) Delete(ctx context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	if err := d.root.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Stat returns file metadata without opening it.
func (d *DiskBackend) Stat(ctx context.Context, p string) (FileInfo, error) {
	key, err := cleanKey(p)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := d.root.Stat(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

// List returns regular files directly inside dir, skipping in-flight temp files.
func (d *DiskBackend) List(ctx context.Context, dir string) ([]FileInfo, error) {
	key, err := cleanKey(dir)
	if err != nil {
		return nil, err
	}
	f, err := d.root.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
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

// HealthCheck verifies the backend is reachable (cheap, safe for frequent polling).
func (d *DiskBackend) HealthCheck(ctx context.Context) error {
	if _, err := d.root.Stat("."); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

// ValidateAccess performs a full read/write/delete test.
func (d *DiskBackend) ValidateAccess(ctx context.Context) error {
	testFilename := ".docchat-access-test-" + uuid.New().String()
	testContent := []byte("docchat-storage-test")

	file, err := d.root.Create(testFilename)
	if err != nil {
		return fmt.Errorf("storage write test failed: %w", err)
	}
	if _, err := file.Write(testContent); err != nil {
		file.Close()
		d.root.Remove(testFilename)
		return fmt.Errorf("storage write test failed: %w", err)
	}
	file.Close()

	readContent, err := d.root.ReadFile(testFilename)
	if err != nil {
		d.root.Remove(testFilename)
		return fmt.Errorf("storage read test failed: %w", err)
	}
	if !bytes.Equal(readContent, testContent) {
		d.root.Remove(testFilename)
		return fmt.Errorf("storage read test failed: content mismatch")
	}

	if err := d.root.Remove(testFilename); err != nil {
		return fmt.Errorf("storage delete test failed: %w", err)
	}

	return nil
}

// Close releases resources held by the backend.
func (d *DiskBackend) Close() error {
	return d.root.Close()
}
