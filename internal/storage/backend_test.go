package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLocal(t *testing.T) (*LocalBackend, string) {
	t.Helper()
	tmpDir := t.TempDir()
	backend, err := NewLocalBackend(tmpDir, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create LocalBackend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend, tmpDir
}

func readAll(t *testing.T, b Backend, path string) string {
	t.Helper()
	rc, err := b.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll(%s) failed: %v", path, err)
	}
	return string(data)
}

func TestLocalBackend_BasicOperations(t *testing.T) {
	backend, tmpDir := newTestLocal(t)
	ctx := context.Background()

	t.Run("Write and Open", func(t *testing.T) {
		if err := backend.Write(ctx, "plots/consumption.png", []byte("png bytes")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if got := readAll(t, backend, "plots/consumption.png"); got != "png bytes" {
			t.Errorf("Open data = %q, want %q", got, "png bytes")
		}

		info, err := os.Stat(filepath.Join(tmpDir, "plots", "consumption.png"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("file mode = %v, want 0644", info.Mode().Perm())
		}
	})

	t.Run("WriteReader", func(t *testing.T) {
		body := strings.Repeat("0.0 1 1 1 1 1 2 3\n", 1000)
		if err := backend.WriteReader(ctx, "raw/node.oml", strings.NewReader(body), int64(len(body))); err != nil {
			t.Fatalf("WriteReader failed: %v", err)
		}
		if got := readAll(t, backend, "raw/node.oml"); got != body {
			t.Errorf("WriteReader round trip lost data: %d bytes, want %d", len(got), len(body))
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := backend.Write(ctx, "over.txt", []byte("first")); err != nil {
			t.Fatal(err)
		}
		if err := backend.Write(ctx, "over.txt", []byte("second")); err != nil {
			t.Fatal(err)
		}
		if got := readAll(t, backend, "over.txt"); got != "second" {
			t.Errorf("got %q after overwrite", got)
		}
	})

	t.Run("Open missing", func(t *testing.T) {
		_, err := backend.Open(ctx, "nope.oml")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Open missing error = %v, want ErrNotFound", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Open missing error = %v, want os.ErrNotExist in chain", err)
		}
	})
}

func TestLocalBackend_List(t *testing.T) {
	backend, tmpDir := newTestLocal(t)
	ctx := context.Background()

	for _, p := range []string{"site/a.oml", "site/b.oml", "site/sub/c.oml", "other/d.oml"} {
		if err := backend.Write(ctx, p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "site", ".hidden"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := backend.List(ctx, "site")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sort.Strings(files)
	want := []string{
		filepath.Join("site", "a.oml"),
		filepath.Join("site", "b.oml"),
		filepath.Join("site", "sub", "c.oml"),
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("List = %v, want %v", files, want)
	}

	files, err = backend.List(ctx, "missing")
	if err != nil {
		t.Fatalf("List of missing prefix failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("List of missing prefix = %v, want empty", files)
	}
}

func TestLocalBackend_PathTraversal(t *testing.T) {
	backend, tmpDir := newTestLocal(t)
	ctx := context.Background()

	if err := backend.Write(ctx, "../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// The write is confined below the base path.
	if _, err := os.Stat(filepath.Join(tmpDir, "escape.txt")); err != nil {
		t.Errorf("expected confined file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(filepath.Dir(tmpDir)), "escape.txt")); err == nil {
		t.Error("write escaped the base path")
	}

	if err := backend.Write(ctx, "a/../../b", []byte("b")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "b")); err != nil {
		t.Errorf("expected a/../../b to land on the base path: %v", err)
	}
	if err := backend.Write(ctx, "run..1.oml", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "run..1.oml")); err != nil {
		t.Errorf("dotted name was mangled: %v", err)
	}

	if _, err := backend.Open(ctx, "bad\x00name"); err == nil {
		t.Error("Open with null byte should fail")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"out/a.parquet": "application/vnd.apache.parquet",
		"out/a.msgpack": "application/msgpack",
		"plot.png":      "image/png",
		"plot.svg":      "image/svg+xml",
		"node.oml":      "text/plain",
		"blob":          "application/octet-stream",
	}
	for path, want := range tests {
		if got := contentType(path); got != want {
			t.Errorf("contentType(%q) = %q, want %q", path, got, want)
		}
	}
}
