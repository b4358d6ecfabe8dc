package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPackPayload is the columnar MessagePack document: one array per column
// keyed by name, with Order giving the schema order. The time column holds
// microseconds since the epoch.
type MsgPackPayload struct {
	Measurement string                 `msgpack:"m"`
	ExportID    string                 `msgpack:"id"`
	Source      string                 `msgpack:"source"`
	Order       []string               `msgpack:"order"`
	Columns     map[string]interface{} `msgpack:"columns"`
}

// MsgPackExporter writes tables as columnar MessagePack.
type MsgPackExporter struct {
	logger zerolog.Logger
}

// NewMsgPackExporter creates a MessagePack exporter.
func NewMsgPackExporter(logger zerolog.Logger) *MsgPackExporter {
	return &MsgPackExporter{
		logger: logger.With().Str("component", "msgpack-exporter").Logger(),
	}
}

// Extension implements Exporter.
func (e *MsgPackExporter) Extension() string {
	return "msgpack"
}

// Export implements Exporter.
func (e *MsgPackExporter) Export(ctx context.Context, t *oml.Table, meta Meta) ([]byte, error) {
	cols, err := columns(t)
	if err != nil {
		return nil, err
	}

	payload := MsgPackPayload{
		Measurement: t.MeasurementType().Name,
		ExportID:    meta.ExportID,
		Source:      meta.Source,
		Order:       make([]string, 0, len(cols)+1),
		Columns:     make(map[string]interface{}, len(cols)+1),
	}
	for _, c := range cols {
		payload.Order = append(payload.Order, c.name)
		switch c.kind {
		case oml.KindFloat:
			payload.Columns[c.name] = c.floats
		case oml.KindInt:
			payload.Columns[c.name] = c.ints
		case oml.KindString:
			payload.Columns[c.name] = c.strings
		}
		if c.name == oml.FieldTimestamp {
			payload.Order = append(payload.Order, TimeColumn)
			payload.Columns[TimeColumn] = timeMicros(t)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	// Sorted map keys keep the output byte-identical across runs.
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&payload); err != nil {
		return nil, fmt.Errorf("failed to encode msgpack: %w", err)
	}

	e.logger.Debug().
		Str("measurement", payload.Measurement).
		Int("rows", t.Len()).
		Int("size", buf.Len()).
		Msg("Wrote MessagePack file")

	return buf.Bytes(), nil
}

// DecodeMsgPack reads a payload written by MsgPackExporter.
func DecodeMsgPack(data []byte) (*MsgPackPayload, error) {
	var p MsgPackPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal msgpack: %w", err)
	}
	return &p, nil
}
