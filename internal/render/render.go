// Package render draws loaded OML tables as chart files.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/basekick-labs/omlplot/internal/metrics"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Options configures the figures a Renderer writes.
type Options struct {
	Width  vg.Length
	Height vg.Length
	// Format is png, svg or pdf.
	Format string
	// OutputDir is a local directory or an s3:// or azure:// prefix.
	OutputDir string
	// Prefix starts every file name, usually the input base name.
	Prefix string
	// Report receives the clock verification summary. Nil discards it.
	Report io.Writer
}

// Renderer writes figures through a storage backend.
type Renderer struct {
	opts     Options
	resolver *storage.Resolver
	out      storage.Location
	logger   zerolog.Logger
}

// New returns a renderer writing below opts.OutputDir.
func New(opts Options, resolver *storage.Resolver, logger zerolog.Logger) (*Renderer, error) {
	switch opts.Format {
	case "png", "svg", "pdf":
	default:
		return nil, fmt.Errorf("unsupported figure format %q", opts.Format)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("figure size must be positive")
	}
	out, err := storage.ParseLocation(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output location: %w", err)
	}
	return &Renderer{
		opts:     opts,
		resolver: resolver,
		out:      out,
		logger:   logger.With().Str("component", "render").Logger(),
	}, nil
}

// newPlot returns a plot with the grid every figure of the tool set uses.
func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

// xyPlot draws ys against xs as a line.
func xyPlot(title, xlabel, ylabel string, xs, ys []float64) (*plot.Plot, error) {
	p := newPlot(title, xlabel, ylabel)
	pts := make(plotter.XYs, len(xs))
	for i := range pts {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("could not create line plotter: %w", err)
	}
	line.Color = lineColor
	p.Add(line)
	return p, nil
}

// newCanvas returns a canvas of the configured format.
func (r *Renderer) newCanvas() (vg.CanvasWriterTo, error) {
	w, h := r.opts.Width, r.opts.Height
	switch r.opts.Format {
	case "png":
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "pdf":
		return vgpdf.New(w, h), nil
	}
	return nil, fmt.Errorf("unsupported figure format %q", r.opts.Format)
}

// save draws plots stacked in one column of a single figure and writes it
// as <prefix><name>.<format>. It returns the written location.
func (r *Renderer) save(ctx context.Context, name string, plots ...*plot.Plot) (string, error) {
	if len(plots) == 0 {
		return "", fmt.Errorf("figure %s has no plots", name)
	}

	c, err := r.newCanvas()
	if err != nil {
		return "", err
	}
	dc := draw.New(c)

	if len(plots) == 1 {
		plots[0].Draw(dc)
	} else {
		rows := make([][]*plot.Plot, len(plots))
		for i, p := range plots {
			rows[i] = []*plot.Plot{p}
		}
		tiles := draw.Tiles{
			Rows:      len(plots),
			Cols:      1,
			PadTop:    vg.Millimeter,
			PadBottom: vg.Millimeter,
			PadLeft:   vg.Millimeter,
			PadRight:  vg.Millimeter,
			PadY:      2 * vg.Millimeter,
		}
		canvases := plot.Align(rows, tiles, dc)
		for i, p := range plots {
			p.Draw(canvases[i][0])
		}
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to encode figure %s: %w", name, err)
	}

	loc := r.out.Join(r.opts.Prefix + name + "." + r.opts.Format)
	backend, err := r.resolver.Backend(ctx, loc)
	if err != nil {
		return "", err
	}
	if err := backend.Write(ctx, loc.Key, buf.Bytes()); err != nil {
		metrics.Get().IncStorageErrors()
		return "", fmt.Errorf("failed to write figure %s: %w", loc, err)
	}

	m := metrics.Get()
	m.IncFiguresWritten()
	m.IncFigureBytes(int64(buf.Len()))
	m.IncStorageWrites()
	m.IncStorageWriteBytes(int64(buf.Len()))

	r.logger.Info().
		Str("figure", loc.String()).
		Int("panels", len(plots)).
		Int("size", buf.Len()).
		Msg("Wrote figure")

	return loc.String(), nil
}

// timeLabel is the x axis label of every time series.
func timeLabel(t *oml.Table) string {
	if f, ok := t.Schema().Field(oml.FieldTimestamp); ok && f.Label != "" {
		return f.Label
	}
	return oml.FieldTimestamp
}

// measureLabel returns the axis label of a payload column.
func measureLabel(t *oml.Table, name string) string {
	if m, ok := t.Schema().Measure(name); ok && m.Label != "" {
		return m.Label
	}
	return name
}

// series returns the timestamps and a numeric column of t.
func series(t *oml.Table, field string) (xs, ys []float64, err error) {
	ys, err = t.Floats(field)
	if err != nil {
		return nil, nil, err
	}
	return t.Timestamps(), ys, nil
}
