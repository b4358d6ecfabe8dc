package oml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = strings.Repeat("HEADER\n", HeaderLines)

func measureLine(t float64, tag int64, num, ts, tus int64, measures string) string {
	return fmt.Sprintf("%v %d %d %d %d %s\n", t, tag, num, ts, tus, measures)
}

func consumptionFile(lines ...string) string {
	return header + strings.Join(lines, "")
}

func TestLoad_Consumption(t *testing.T) {
	content := consumptionFile(
		"0.0 1 1 12345 678900 1.0 2.0 3.0\n",
		"0.0 1 2 12346 678900 1.0 2.0 3.0\n",
	)

	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	row := table.Row(0)
	assert.InDelta(t, 12345.6789, row.Timestamp, 1e-9)
	assert.Equal(t, "consumption", row.Type)
	assert.Equal(t, int64(1), row.Num)
	assert.Equal(t, int64(12345), row.Ts)
	assert.Equal(t, int64(678900), row.Tus)
	assert.Equal(t, 1.0, row.Float("power"))
	assert.Equal(t, 2.0, row.Float("voltage"))
	assert.Equal(t, 3.0, row.Float("current"))

	assert.InDelta(t, 12346.6789, table.Row(1).Timestamp, 1e-9)
	assert.Equal(t, int64(2), table.Row(1).Num)

	values := row.Values()
	require.Len(t, values, 8)
	assert.Equal(t, "consumption", values[1].Text())
	assert.Equal(t, KindFloat, values[5].Kind())
}

func TestLoad_OnlyOneRecord(t *testing.T) {
	content := consumptionFile(measureLine(0.1234, 1, 1, 12345, 678900, "1. 2. 3."))

	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1.0, table.Row(0).Float("power"))
}

func TestLoad_TimestampIsDerived(t *testing.T) {
	content := consumptionFile(
		measureLine(999.5, 1, 1, 10, 1, "0 0 0"),
		measureLine(-3, 1, 2, 20, 999999, "0 0 0"),
		measureLine(0, 1, 3, 0, 500000, "0 0 0"),
	)

	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	for i, r := range table.Rows() {
		assert.Equal(t, float64(r.Ts)+float64(r.Tus)/1e6, r.Timestamp, "row %d", i)
	}
	assert.Equal(t, 0.5, table.Row(2).Timestamp)
}

func TestLoad_TypeInvariant(t *testing.T) {
	content := consumptionFile(
		measureLine(0, 1, 1, 1, 0, "1 2 3"),
		measureLine(0, 1, 2, 2, 0, "1 2 3"),
	)
	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)

	types, err := table.Strings(FieldType)
	require.NoError(t, err)
	for _, typ := range types {
		assert.Equal(t, Consumption, typ)
	}
	assert.Equal(t, MeasurementType{Name: Consumption, Tag: 1}, table.MeasurementType())
}

func TestLoad_Deterministic(t *testing.T) {
	content := consumptionFile(
		measureLine(0, 1, 1, 1, 10, "1 2 3"),
		"broken line\n",
		measureLine(0, 1, 2, 2, 20, "4 5 6"),
	)

	a, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	b, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.True(t, a.Row(i).Equal(b.Row(i)), "row %d differs", i)
	}
}

func TestLoad_PreambleOnly(t *testing.T) {
	table, err := Load(strings.NewReader(header), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	// Blank lines and comments are not data lines.
	table, err = Load(strings.NewReader(header+"\n   \n# comment\n"), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoad_SingleMismatchedTagIsFatal(t *testing.T) {
	content := consumptionFile(
		measureLine(0, 1, 1, 1, 0, "1 2 3"),
		measureLine(0, 2, 2, 2, 0, "1 2 3"),
		measureLine(0, 1, 3, 3, 0, "1 2 3"),
	)

	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.NotErrorIs(t, err, ErrStructural)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, HeaderLines+2, loadErr.Line)
	assert.Equal(t, Consumption, loadErr.MeasurementType)
	assert.Contains(t, err.Error(), "radio")
}

func TestLoad_UnregisteredTagIsFatal(t *testing.T) {
	content := consumptionFile(measureLine(0, 42, 1, 1, 0, "1 2 3"))

	_, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "tag 42")
}

func TestLoad_MalformedRowsDropped(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"too few tokens", "0.0 1 2 12346 678900 1.0 2.0\n"},
		{"too many tokens", "0.0 1 2 12346 678900 1.0 2.0 3.0 4.0\n"},
		{"bad float", "0.0 1 2 12346 678900 1.0 abc 3.0\n"},
		{"bad int", "0.0 1 2.5 12346 678900 1.0 2.0 3.0\n"},
		{"bad placeholder", "zero 1 2 12346 678900 1.0 2.0 3.0\n"},
		{"bad type tag", "0.0 one 2 12346 678900 1.0 2.0 3.0\n"},
		{"truncated trailing line", "0.0 1 2 123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := consumptionFile("0.0 1 1 12345 678900 1.0 2.0 3.0\n", tt.bad)
			l, err := NewLoader(Consumption, ConsumptionMeasures...)
			require.NoError(t, err)

			table, stats, err := l.Read(strings.NewReader(content), "test.oml")
			require.NoError(t, err)
			assert.Equal(t, 1, table.Len())
			assert.Equal(t, Stats{Lines: 2, Kept: 1, Dropped: 1}, stats)
		})
	}
}

func TestLoad_GarbageIsEmptyResult(t *testing.T) {
	table, err := Load(strings.NewReader(header+"garbage text here"), Consumption, ConsumptionMeasures...)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.NotErrorIs(t, err, ErrTypeMismatch)
}

func TestLoad_ShorterThanPreamble(t *testing.T) {
	for _, content := range []string{"", "1 2 3", strings.Repeat("H\n", HeaderLines-1)} {
		_, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
		assert.ErrorIs(t, err, ErrStructural, "content %q", content)
	}
}

func TestLoad_UnknownMeasurementType(t *testing.T) {
	_, err := Load(strings.NewReader(header), "temperature", ConsumptionMeasures...)
	assert.ErrorIs(t, err, ErrUnknownMeasurementType)

	_, err = LoadFile("/does/not/matter.oml", "temperature")
	assert.ErrorIs(t, err, ErrUnknownMeasurementType)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radio.oml")
	content := header +
		measureLine(0, 2, 1, 100, 0, "11 -91") +
		measureLine(0, 2, 2, 100, 500000, "12 -45")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadFile(path, Radio, RadioMeasures...)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	rssi, err := table.Ints("rssi")
	require.NoError(t, err)
	assert.Equal(t, []int64{-91, -45}, rssi)
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.oml")
	_, err := LoadFile(path, Consumption, ConsumptionMeasures...)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.oml")
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestLoad_ReadFailure(t *testing.T) {
	_, err := Load(&failingReader{data: header + "0.0 1 1 1 1 1 1 1\n"}, Consumption, ConsumptionMeasures...)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLoad_StringMeasureTruncated(t *testing.T) {
	content := header + measureLine(0, 3, 1, 5, 0, "1 averyveryverylongeventname")

	table, err := Load(strings.NewReader(content), Event,
		Measure{Name: "id", Kind: KindInt},
		Measure{Name: "name", Kind: KindString, Width: 8},
	)
	require.NoError(t, err)
	names, err := table.Strings("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"averyver"}, names)
}

func TestLoad_InlineComment(t *testing.T) {
	content := header + "0.0 1 1 12345 678900 1.0 2.0 3.0 # trailing note\n"

	table, err := Load(strings.NewReader(content), Consumption, ConsumptionMeasures...)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLoaderFor(t *testing.T) {
	l, err := LoaderFor(RobotPose)
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.MeasurementType().Tag)
	assert.Equal(t, BaseFieldCount+3, l.Schema().Len())

	_, err = LoaderFor(Sniffer)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = LoaderFor("nope")
	assert.ErrorIs(t, err, ErrUnknownMeasurementType)
}
