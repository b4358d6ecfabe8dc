package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Location schemes.
const (
	SchemeLocal = "local"
	SchemeS3    = "s3"
	SchemeAzure = "azure"
)

// Location is a parsed input or output address.
type Location struct {
	Scheme string
	// Bucket is the S3 bucket or Azure container. Empty for local paths.
	Bucket string
	// Key is the object key, or the absolute path for local files.
	Key string
}

// ParseLocation parses s3://bucket/key, azure://container/blob, file:///path
// or a plain filesystem path. Relative paths are made absolute.
func ParseLocation(uri string) (Location, error) {
	if strings.TrimSpace(uri) == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return localLocation(uri)
	}

	switch strings.ToLower(scheme) {
	case "file":
		return localLocation(rest)
	case "s3":
		return remoteLocation(SchemeS3, uri, rest)
	case "azure", "az":
		return remoteLocation(SchemeAzure, uri, rest)
	default:
		return Location{}, fmt.Errorf("unsupported location scheme %q in %s", scheme, uri)
	}
}

func localLocation(path string) (Location, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Location{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return Location{Scheme: SchemeLocal, Key: abs}, nil
}

func remoteLocation(scheme, uri, rest string) (Location, error) {
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("missing bucket in %s", uri)
	}
	return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// Join returns the location of name below l.
func (l Location) Join(name string) Location {
	out := l
	if l.Scheme == SchemeLocal {
		out.Key = filepath.Join(l.Key, name)
		return out
	}
	if out.Key == "" {
		out.Key = name
	} else {
		out.Key = strings.TrimSuffix(out.Key, "/") + "/" + name
	}
	return out
}

// Base returns the last element of the key.
func (l Location) Base() string {
	if l.Scheme == SchemeLocal {
		return filepath.Base(l.Key)
	}
	key := strings.TrimSuffix(l.Key, "/")
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Dir returns the location of the directory holding l.
func (l Location) Dir() Location {
	out := l
	if l.Scheme == SchemeLocal {
		out.Key = filepath.Dir(l.Key)
		return out
	}
	key := strings.TrimSuffix(l.Key, "/")
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		out.Key = key[:i]
	} else {
		out.Key = ""
	}
	return out
}

func (l Location) String() string {
	if l.Scheme == SchemeLocal {
		return l.Key
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}
