package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/basekick-labs/omlplot/internal/metrics"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrOutputCollision reports inputs that would be written to the same output.
var ErrOutputCollision = errors.New("output name collision")

// Result is the outcome of converting one input.
type Result struct {
	Source   string
	Output   string
	ExportID string
	Stats    oml.Stats
	Size     int
	Err      error
}

// Batch converts OML files of one measurement type concurrently.
type Batch struct {
	resolver *storage.Resolver
	exporter Exporter
	loader   *oml.Loader
	output   storage.Location
	workers  int
	logger   zerolog.Logger

	converted atomic.Int64
	failed    atomic.Int64
}

// NewBatch creates a batch writing into outputDir, which may be a local
// directory or an s3:// or azure:// prefix.
func NewBatch(resolver *storage.Resolver, exporter Exporter, loader *oml.Loader, outputDir string, workers int, logger zerolog.Logger) (*Batch, error) {
	out, err := storage.ParseLocation(outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output location: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	return &Batch{
		resolver: resolver,
		exporter: exporter,
		loader:   loader,
		output:   out,
		workers:  workers,
		logger:   logger.With().Str("component", "export-batch").Logger(),
	}, nil
}

// Run converts every source and returns one result per source, in input
// order. A failing source does not stop the others; Run itself only fails
// when ctx is cancelled. Sources sharing an output name are all failed with
// ErrOutputCollision instead of overwriting each other.
func (b *Batch) Run(ctx context.Context, sources []string) ([]Result, error) {
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	start := time.Now()
	collisions := b.collisions(sources)
	sem := semaphore.NewWeighted(int64(b.workers))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range sources {
		i, src := i, src
		if err, ok := collisions[i]; ok {
			results[i] = Result{Source: src, Err: err}
			b.failed.Add(1)
			metrics.Get().IncExportErrors()
			b.logger.Error().
				Err(err).
				Str("source", src).
				Msg("Failed to export file")
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			b.logger.Error().Err(err).Msg("Failed to acquire semaphore")
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			res := b.convert(gctx, src)
			results[i] = res
			if res.Err != nil {
				b.failed.Add(1)
				metrics.Get().IncExportErrors()
				b.logger.Error().
					Err(res.Err).
					Str("source", src).
					Msg("Failed to export file")
				return nil
			}

			b.converted.Add(1)
			metrics.Get().IncExports()
			metrics.Get().IncExportBytes(int64(res.Size))
			b.logger.Info().
				Str("source", src).
				Str("output", res.Output).
				Int("rows", res.Stats.Kept).
				Int("dropped", res.Stats.Dropped).
				Int("size", res.Size).
				Msg("Exported file")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	b.logger.Info().
		Int64("converted", b.converted.Load()).
		Int64("failed", b.failed.Load()).
		Dur("duration", time.Since(start)).
		Msg("Export batch finished")

	return results, nil
}

// collisions maps the index of every source whose output name is shared
// with another source to the error reported for it.
func (b *Batch) collisions(sources []string) map[int]error {
	byName := make(map[string][]int, len(sources))
	for i, src := range sources {
		name := OutputName(src, b.exporter.Extension())
		byName[name] = append(byName[name], i)
	}

	errs := make(map[int]error)
	for name, idx := range byName {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			var others []string
			for _, j := range idx {
				if j != i {
					others = append(others, sources[j])
				}
			}
			errs[i] = fmt.Errorf("%w: %s is also written by %s",
				ErrOutputCollision, b.output.Join(name), strings.Join(others, ", "))
		}
	}
	return errs
}

func (b *Batch) convert(ctx context.Context, src string) Result {
	res := Result{Source: src}

	rc, err := b.resolver.Open(ctx, src)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", oml.ErrSourceUnavailable, err)
		return res
	}
	start := time.Now()
	table, stats, err := b.loader.Read(rc, src)
	rc.Close()
	metrics.Get().RecordLoad(stats.Kept, stats.Dropped, time.Since(start), err)
	res.Stats = stats
	if err != nil {
		res.Err = err
		return res
	}

	meta := NewMeta(src)
	res.ExportID = meta.ExportID

	data, err := b.exporter.Export(ctx, table, meta)
	if err != nil {
		res.Err = fmt.Errorf("export %s: %w", src, err)
		return res
	}

	out := b.output.Join(OutputName(src, b.exporter.Extension()))
	backend, err := b.resolver.Backend(ctx, out)
	if err != nil {
		res.Err = err
		return res
	}
	if err := backend.Write(ctx, out.Key, data); err != nil {
		metrics.Get().IncStorageErrors()
		res.Err = fmt.Errorf("write %s: %w", out, err)
		return res
	}
	metrics.Get().IncStorageWrites()
	metrics.Get().IncStorageWriteBytes(int64(len(data)))

	res.Output = out.String()
	res.Size = len(data)
	return res
}

// Counts returns how many sources were converted and how many failed so far.
func (b *Batch) Counts() (converted, failed int64) {
	return b.converted.Load(), b.failed.Load()
}
