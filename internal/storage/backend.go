package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Backend is a place OML files are read from and exports are written to
// (local filesystem, S3/MinIO, Azure Blob Storage).
type Backend interface {
	// Open returns a reader on the object at path. The caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Write writes data to the specified path
	Write(ctx context.Context, path string, data []byte) error

	// WriteReader writes data from a reader to the specified path (for large files)
	WriteReader(ctx context.Context, path string, reader io.Reader, size int64) error

	// List lists all objects with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close closes any resources held by the backend
	Close() error

	// Type returns the storage type identifier ("local", "s3", "azure")
	Type() string
}

// contentType picks the content type stored with uploaded objects.
func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(path, ".msgpack"):
		return "application/msgpack"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(path, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(path, ".oml"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
