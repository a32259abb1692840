// Package storage holds rendered artifact bytes and batch archives. Keys are
// slash-separated paths such as "codes/qr_ab12_1700000000.png" or
// "batch/<job>.zip"; the relational metadata lives elsewhere.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"qrforge/internal/config"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrPresignUnsupported = errors.New("presigned urls not supported by backend")
	ErrInvalidKey         = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store shared by generation, batch archives and the
// cleanup sweep. Implementations are safe for concurrent use.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List enumerates objects under prefix, recursively. Sentinel files are
	// never returned.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// PresignGet returns a time-limited download URL, or ErrPresignUnsupported.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// IsSentinel reports whether key names a placeholder or listing file that
// must survive enumeration and cleanup: .gitkeep, index.*, dot files and
// in-flight *.tmp files.
func IsSentinel(key string) bool {
	base := path.Base(key)
	switch {
	case base == "." || base == "/" || base == "":
		return true
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasPrefix(base, "index."):
		return true
	case strings.HasSuffix(base, ".tmp"):
		return true
	}
	return false
}

// CleanKey normalizes key and rejects absolute or escaping paths.
func CleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimSpace(key))
	if k == "." || k == "" || strings.HasPrefix(k, "/") || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

// New builds the backend selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.AppConfig) (Storage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return NewMinIO(ctx, cfg.MinIO)
	case "local", "":
		return NewLocal(cfg.Storage.Dir)
	}
	return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}
