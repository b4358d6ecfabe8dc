package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the encoding of an input by its extension.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// CompressionOf reports the compression implied by name's extension.
func CompressionOf(name string) Compression {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressionZstd
	}
	return CompressionNone
}

// TrimCompressionExt strips a compression extension from name.
func TrimCompressionExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".gzip", ".gz", ".zstd", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Decompress wraps rc with a decoder chosen from name. Closing the result
// releases the decoder and closes rc.
func Decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch CompressionOf(name) {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", name, err)
		}
		return &layeredReader{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", name, err)
		}
		release := func() error {
			zr.Close()
			return nil
		}
		return &layeredReader{Reader: zr, closers: []func() error{release, rc.Close}}, nil
	}
	return rc, nil
}

type layeredReader struct {
	io.Reader
	closers []func() error
}

// Close runs every closer, innermost first, and joins their errors.
func (l *layeredReader) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}

// ErrInputTooLarge is returned by a limited reader once its input exceeds
// the configured size.
var ErrInputTooLarge = errors.New("input exceeds configured max size")

// limitedReader is an io.LimitReader that fails rather than truncates.
type limitedReader struct {
	io.ReadCloser
	remaining int64
	limit     int64
}

func limitReader(rc io.ReadCloser, limit int64) io.ReadCloser {
	if limit <= 0 {
		return rc
	}
	return &limitedReader{ReadCloser: rc, remaining: limit, limit: limit}
}

func (r *limitedReader) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, r.limit)
	}
	// Read one byte past the limit to tell "exactly limit" from "more".
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return n + int(r.remaining), fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, r.limit)
	}
	return n, err
}
