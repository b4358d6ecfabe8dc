// Package export converts loaded OML tables to columnar files.
package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/basekick-labs/omlplot/internal/config"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Metadata keys stored with every export.
const (
	MetaMeasurementType = "oml.measurement_type"
	MetaExportID        = "oml.export_id"
	MetaSource          = "oml.source"
)

// TimeColumn is the column added next to the float timestamp, holding the
// same instant as microseconds since the epoch.
const TimeColumn = "time"

// Meta describes where an export came from.
type Meta struct {
	ExportID string
	Source   string
}

// NewMeta returns metadata with a fresh export identifier.
func NewMeta(source string) Meta {
	return Meta{ExportID: uuid.NewString(), Source: source}
}

// Exporter encodes a table into one file.
type Exporter interface {
	Export(ctx context.Context, t *oml.Table, meta Meta) ([]byte, error)
	// Extension is the file extension without a dot.
	Extension() string
}

// New returns the exporter selected by cfg.Format.
func New(cfg config.ExportConfig, logger zerolog.Logger) (Exporter, error) {
	switch cfg.Format {
	case "parquet":
		return NewParquetExporter(cfg.Compression, logger), nil
	case "msgpack":
		return NewMsgPackExporter(logger), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", cfg.Format)
	}
}

// Stem returns the base name of source without its compression and .oml
// extensions.
func Stem(source string) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	base = storage.TrimCompressionExt(base)
	if strings.HasSuffix(strings.ToLower(base), ".oml") {
		base = base[:len(base)-len(".oml")]
	}
	return base
}

// OutputName derives the output file name of source: its Stem plus ext.
func OutputName(source, ext string) string {
	return Stem(source) + "." + ext
}

// column is one typed column of a table. Exactly one of the slices is set.
type column struct {
	name    string
	kind    oml.Kind
	floats  []float64
	ints    []int64
	strings []string
}

// columns extracts every schema column of t in schema order.
func columns(t *oml.Table) ([]column, error) {
	fields := t.Schema().Fields()
	out := make([]column, 0, len(fields))
	for _, f := range fields {
		c := column{name: f.Name, kind: f.Kind}
		var err error
		switch f.Kind {
		case oml.KindFloat:
			c.floats, err = t.Floats(f.Name)
		case oml.KindInt:
			c.ints, err = t.Ints(f.Name)
		case oml.KindString:
			c.strings, err = t.Strings(f.Name)
		default:
			err = fmt.Errorf("unsupported kind %s for column %s", f.Kind, f.Name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// timeMicros converts the record clock to microseconds since the epoch
// without going through the float timestamp.
func timeMicros(t *oml.Table) []int64 {
	out := make([]int64, t.Len())
	for i, r := range t.Rows() {
		out[i] = r.Ts*1_000_000 + r.Tus
	}
	return out
}
