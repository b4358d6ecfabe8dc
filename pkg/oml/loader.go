// Package oml loads OML measurement files written by testbed nodes.
//
// An OML file starts with a fixed 9 line preamble followed by one record per
// line:
//
//	<timestamp> <type tag> <num> <t_s> <t_us> <measure 1> ... <measure k>
//
// The timestamp token is a placeholder: the loader always derives it from
// t_s and t_us. Every record of a file must carry the tag of the requested
// measurement type. Lines that do not match the schema are dropped.
package oml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// HeaderLines is the length of the OML preamble.
const HeaderLines = 9

// maxLineSize bounds a single input line.
const maxLineSize = 4 * 1024 * 1024

// Stats describes what a load saw besides the records it kept.
type Stats struct {
	Lines   int // data lines attempted, blank and comment lines excluded
	Kept    int
	Dropped int
}

// Loader parses OML files of one measurement type.
type Loader struct {
	mtype  MeasurementType
	schema *Schema
}

// NewLoader returns a loader for the registered measurement type typeName
// whose payload columns are measures.
func NewLoader(typeName string, measures ...Measure) (*Loader, error) {
	mtype, err := LookupType(typeName)
	if err != nil {
		return nil, err
	}
	schema, err := NewSchema(measures...)
	if err != nil {
		return nil, err
	}
	return &Loader{mtype: mtype, schema: schema}, nil
}

// MeasurementType returns the type the loader accepts.
func (l *Loader) MeasurementType() MeasurementType {
	return l.mtype
}

// Schema returns the composed schema of the records the loader produces.
func (l *Loader) Schema() *Schema {
	return l.schema
}

// Load reads an OML file of typeName from r.
func Load(r io.Reader, typeName string, measures ...Measure) (*Table, error) {
	l, err := NewLoader(typeName, measures...)
	if err != nil {
		return nil, err
	}
	return l.Load(r)
}

// LoadFile reads the OML file at path as typeName.
func LoadFile(path, typeName string, measures ...Measure) (*Table, error) {
	l, err := NewLoader(typeName, measures...)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// Load reads a whole OML stream.
func (l *Loader) Load(r io.Reader) (*Table, error) {
	t, _, err := l.Read(r, "")
	return t, err
}

// LoadFile opens path, reads it and closes it on every exit path.
func (l *Loader) LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, l.fail(path, 0, fmt.Errorf("%w: %w", ErrSourceUnavailable, err))
	}
	defer f.Close()

	t, _, err := l.Read(f, path)
	return t, err
}

// Read parses r and reports load statistics. name only labels errors.
func (l *Loader) Read(r io.Reader, name string) (*Table, Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for lineNo < HeaderLines {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, stats, l.fail(name, lineNo+1, scanErr(err))
			}
			return nil, stats, l.fail(name, 0,
				fmt.Errorf("%w: %d lines, preamble is %d", ErrStructural, lineNo, HeaderLines))
		}
		lineNo++
	}

	width := l.schema.Len()
	rows := make([]Record, 0, 256)

	for scanner.Scan() {
		lineNo++
		tokens, ok := dataTokens(scanner.Text())
		if !ok {
			continue
		}
		stats.Lines++

		if len(tokens) != width {
			stats.Dropped++
			continue
		}

		// The type column is checked on its own: a foreign tag means the
		// whole file is of another type, whatever the other columns hold.
		tag, err := strconv.ParseInt(tokens[1], 10, 64)
		if err != nil {
			stats.Dropped++
			continue
		}
		if tag != l.mtype.Tag {
			return nil, stats, l.fail(name, lineNo, l.mismatch(tag))
		}

		rec, err := l.parseRecord(tokens)
		if err != nil {
			stats.Dropped++
			continue
		}
		rows = append(rows, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, l.fail(name, lineNo+1, scanErr(err))
	}

	stats.Kept = len(rows)
	if stats.Lines > 0 && len(rows) == 0 {
		return nil, stats, l.fail(name, 0,
			fmt.Errorf("%w: %d data lines, none valid", ErrEmptyResult, stats.Lines))
	}
	return newTable(l.mtype, l.schema, rows), stats, nil
}

// parseRecord converts every column of a line according to the schema. The
// type tag has already been validated.
func (l *Loader) parseRecord(tokens []string) (Record, error) {
	rec := Record{
		Type:   l.mtype.Name,
		schema: l.schema,
	}

	// Placeholder timestamp: must be a float, value discarded.
	if _, err := strconv.ParseFloat(tokens[0], 64); err != nil {
		return Record{}, err
	}
	var err error
	if rec.Num, err = strconv.ParseInt(tokens[2], 10, 64); err != nil {
		return Record{}, err
	}
	if rec.Ts, err = strconv.ParseInt(tokens[3], 10, 64); err != nil {
		return Record{}, err
	}
	if rec.Tus, err = strconv.ParseInt(tokens[4], 10, 64); err != nil {
		return Record{}, err
	}
	rec.Timestamp = timestampOf(rec.Ts, rec.Tus)

	fields := l.schema.fields[BaseFieldCount:]
	rec.values = make([]Value, len(fields))
	for i, f := range fields {
		v, err := parseValue(tokens[BaseFieldCount+i], f)
		if err != nil {
			return Record{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		rec.values[i] = v
	}
	return rec, nil
}

func parseValue(tok string, f Field) (Value, error) {
	switch f.Kind {
	case KindFloat:
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(v), nil
	case KindInt:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(v), nil
	case KindString:
		return StringValue(truncate(tok, f.Width)), nil
	}
	return Value{}, fmt.Errorf("unsupported kind %s", f.Kind)
}

// dataTokens splits a line into tokens. It reports false for blank and
// comment-only lines.
func dataTokens(line string) ([]string, bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	tokens := strings.Fields(line)
	return tokens, len(tokens) > 0
}

func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

func (l *Loader) mismatch(tag int64) error {
	if other, ok := TypeForTag(tag); ok {
		return fmt.Errorf("%w: file is not %s (found %s, tag %d)", ErrTypeMismatch, l.mtype.Name, other.Name, tag)
	}
	return fmt.Errorf("%w: file is not %s (found tag %d)", ErrTypeMismatch, l.mtype.Name, tag)
}

func (l *Loader) fail(name string, line int, err error) error {
	return &LoadError{Source: name, MeasurementType: l.mtype.Name, Line: line, Err: err}
}

func scanErr(err error) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("%w: line exceeds %d bytes", ErrSourceUnavailable, maxLineSize)
	}
	return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}
