package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
)

// memory.GoAllocator is safe for concurrent use, so batch workers share one.
var sharedArrowAllocator = memory.NewGoAllocator()

// ParquetExporter writes a table as a single Parquet row group.
type ParquetExporter struct {
	compression compress.Compression
	logger      zerolog.Logger
}

// NewParquetExporter creates a Parquet exporter. Unknown compression names
// fall back to snappy.
func NewParquetExporter(compression string, logger zerolog.Logger) *ParquetExporter {
	var comp compress.Compression
	switch compression {
	case "gzip":
		comp = compress.Codecs.Gzip
	case "zstd":
		comp = compress.Codecs.Zstd
	case "none":
		comp = compress.Codecs.Uncompressed
	default:
		comp = compress.Codecs.Snappy
	}

	return &ParquetExporter{
		compression: comp,
		logger:      logger.With().Str("component", "parquet-exporter").Logger(),
	}
}

// Extension implements Exporter.
func (e *ParquetExporter) Extension() string {
	return "parquet"
}

// Schema returns the Arrow schema used for t.
func (e *ParquetExporter) Schema(t *oml.Table, meta Meta) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, t.Schema().Len()+1)
	for _, f := range t.Schema().Fields() {
		dt, err := arrowType(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt})
		if f.Name == oml.FieldTimestamp {
			fields = append(fields, arrow.Field{Name: TimeColumn, Type: arrow.FixedWidthTypes.Timestamp_us})
		}
	}

	md := arrow.NewMetadata(
		[]string{MetaMeasurementType, MetaExportID, MetaSource},
		[]string{t.MeasurementType().Name, meta.ExportID, meta.Source},
	)
	return arrow.NewSchema(fields, &md), nil
}

func arrowType(k oml.Kind) (arrow.DataType, error) {
	switch k {
	case oml.KindFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case oml.KindInt:
		return arrow.PrimitiveTypes.Int64, nil
	case oml.KindString:
		return arrow.BinaryTypes.String, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", k)
}

// Export implements Exporter.
func (e *ParquetExporter) Export(ctx context.Context, t *oml.Table, meta Meta) ([]byte, error) {
	schema, err := e.Schema(t, meta)
	if err != nil {
		return nil, err
	}
	cols, err := columns(t)
	if err != nil {
		return nil, err
	}

	mem := sharedArrowAllocator
	arrays := make([]arrow.Array, 0, len(schema.Fields()))
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	for _, c := range cols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch c.kind {
		case oml.KindFloat:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(c.floats, nil)
			arrays = append(arrays, b.NewArray())
			b.Release()
		case oml.KindInt:
			b := array.NewInt64Builder(mem)
			b.AppendValues(c.ints, nil)
			arrays = append(arrays, b.NewArray())
			b.Release()
		case oml.KindString:
			b := array.NewStringBuilder(mem)
			b.AppendValues(c.strings, nil)
			arrays = append(arrays, b.NewArray())
			b.Release()
		}

		if c.name == oml.FieldTimestamp {
			b := array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_us.(*arrow.TimestampType))
			for _, us := range timeMicros(t) {
				b.Append(arrow.Timestamp(us))
			}
			arrays = append(arrays, b.NewArray())
			b.Release()
		}
	}

	return e.write(schema, arrays)
}

func (e *ParquetExporter) write(schema *arrow.Schema, arrays []arrow.Array) ([]byte, error) {
	record := array.NewRecord(schema, arrays, -1)
	defer record.Release()

	var buf bytes.Buffer

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(e.compression),
		parquet.WithDictionaryDefault(true),
		parquet.WithStats(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, &buf, writerProps, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record batch: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	e.logger.Debug().
		Int("columns", len(schema.Fields())).
		Int64("rows", record.NumRows()).
		Int("size", buf.Len()).
		Msg("Wrote Parquet file")

	return buf.Bytes(), nil
}
