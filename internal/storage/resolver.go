package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/basekick-labs/omlplot/internal/config"
	"github.com/basekick-labs/omlplot/internal/metrics"
	"github.com/rs/zerolog"
)

// Resolver maps locations to backends, creating each backend once.
type Resolver struct {
	cfg     config.StorageConfig
	maxSize int64
	logger  zerolog.Logger

	mu       sync.Mutex
	backends map[string]Backend
}

// NewResolver returns a resolver using cfg for remote backends. Inputs
// larger than maxSize bytes once decompressed are refused; 0 disables the
// limit.
func NewResolver(cfg config.StorageConfig, maxSize int64, logger zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		maxSize:  maxSize,
		logger:   logger.With().Str("component", "resolver").Logger(),
		backends: make(map[string]Backend),
	}
}

// Open opens uri for reading. .gz and .zst inputs are decompressed.
func (r *Resolver) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	backend, err := r.Backend(ctx, loc)
	if err != nil {
		return nil, err
	}

	rc, err := backend.Open(ctx, loc.Key)
	if err != nil {
		metrics.Get().IncStorageErrors()
		return nil, err
	}
	dec, err := Decompress(loc.Key, rc)
	if err != nil {
		metrics.Get().IncStorageErrors()
		return nil, err
	}
	metrics.Get().IncStorageReads()

	r.logger.Debug().
		Str("location", loc.String()).
		Str("backend", backend.Type()).
		Msg("Opened input")

	return limitReader(dec, r.maxSize), nil
}

// Expand replaces every directory, and every remote prefix ending in "/",
// with the OML inputs found below it. Plain files are kept as given, and so
// are directories holding no inputs, so that they fail when opened.
func (r *Resolver) Expand(ctx context.Context, uris []string) ([]string, error) {
	var out []string
	for _, uri := range uris {
		loc, err := ParseLocation(uri)
		if err != nil {
			return nil, err
		}
		if loc.Scheme != SchemeLocal && loc.Key != "" && !strings.HasSuffix(loc.Key, "/") {
			out = append(out, uri)
			continue
		}
		backend, err := r.Backend(ctx, loc)
		if err != nil {
			return nil, err
		}
		keys, err := backend.List(ctx, loc.Key)
		if err != nil {
			metrics.Get().IncStorageErrors()
			return nil, fmt.Errorf("failed to list %s: %w", uri, err)
		}

		var found []string
		for _, key := range keys {
			if !IsOMLName(key) {
				continue
			}
			item := loc
			if loc.Scheme == SchemeLocal {
				// Local listings are relative to the filesystem root.
				item.Key = filepath.Join("/", key)
				if item.Key == loc.Key {
					found = nil
					break
				}
			} else {
				item.Key = key
			}
			found = append(found, item.String())
		}
		if len(found) == 0 {
			out = append(out, uri)
			continue
		}
		sort.Strings(found)
		r.logger.Debug().Str("location", uri).Int("inputs", len(found)).Msg("Expanded input directory")
		out = append(out, found...)
	}
	return out, nil
}

// IsOMLName reports whether name is an OML file, compressed or not.
func IsOMLName(name string) bool {
	return strings.HasSuffix(strings.ToLower(TrimCompressionExt(name)), ".oml")
}

// Backend returns the backend serving loc.
func (r *Resolver) Backend(ctx context.Context, loc Location) (Backend, error) {
	key := loc.Scheme + "://" + loc.Bucket

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[key]; ok {
		return b, nil
	}

	var (
		b   Backend
		err error
	)
	switch loc.Scheme {
	case SchemeLocal:
		// Local keys are absolute paths.
		b, err = NewLocalBackend("/", r.logger)
	case SchemeS3:
		b, err = NewS3Backend(ctx, &S3Config{
			Bucket:    loc.Bucket,
			Region:    r.cfg.S3Region,
			Endpoint:  r.cfg.S3Endpoint,
			AccessKey: r.cfg.S3AccessKey,
			SecretKey: r.cfg.S3SecretKey,
			UseSSL:    r.cfg.S3UseSSL,
			PathStyle: r.cfg.S3PathStyle,
		}, r.logger)
	case SchemeAzure:
		b, err = NewAzureBlobBackend(&AzureBlobConfig{
			ConnectionString:   r.cfg.AzureConnectionString,
			AccountName:        r.cfg.AzureAccountName,
			AccountKey:         r.cfg.AzureAccountKey,
			SASToken:           r.cfg.AzureSASToken,
			UseManagedIdentity: r.cfg.AzureUseManagedIdentity,
			ContainerName:      loc.Bucket,
			Endpoint:           r.cfg.AzureEndpoint,
		}, r.logger)
	default:
		return nil, fmt.Errorf("unsupported location scheme %q", loc.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", loc.Scheme, err)
	}

	r.backends[key] = b
	return b, nil
}

// Close closes every backend the resolver created.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, b := range r.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		delete(r.backends, key)
	}
	return errors.Join(errs...)
}
