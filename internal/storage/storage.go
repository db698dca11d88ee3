package storage

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("file not found")

// ErrInvalidPath is returned for keys that are empty, absolute or escape their directory.
var ErrInvalidPath = errors.New("invalid storage path")

// copyBufferSize is the buffer size used for file copies (8MB aligns with S3 multipart upload parts)
const copyBufferSize = 8 * 1024 * 1024

// SaveOptions describes where and how content is stored.
type SaveOptions struct {
	Path        string // Destination key, e.g. "alice/report.pdf". Existing content is replaced.
	ContentType string
}

type SaveResult struct {
	Path string
	Hash string // hex sha256 of the stored content
	Size int64
}

type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// StorageBackend defines the behavior required by the application for storing files.
// This allows swapping implementations (local FS, memory, S3) while keeping the
// rest of the codebase implementation-agnostic.
type StorageBackend interface {
	Save(ctx context.Context, r io.Reader, opts SaveOptions) (SaveResult, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	// List returns the files directly inside dir. A missing dir yields no files.
	List(ctx context.Context, dir string) ([]FileInfo, error)
	HealthCheck(ctx context.Context) error
	ValidateAccess(ctx context.Context) error
}

// Key joins an owner directory and a file name into a storage path.
func Key(owner, filename string) string {
	return owner + "/" + filename
}

// cleanKey validates a storage path and returns it in canonical form.
func cleanKey(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned != p || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// hashingReader feeds everything read through it into hasher and counts bytes.
type hashingReader struct {
	reader    io.Reader
	hasher    hash.Hash
	bytesRead int64
}

func (h *hashingReader) Read(p []byte) (int, error) {
	n, err := h.reader.Read(p)
	if n > 0 {
		h.hasher.Write(p[:n])
		h.bytesRead += int64(n)
	}
	return n, err
}
