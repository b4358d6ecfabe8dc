package oml

import "fmt"

// Table is an immutable, ordered sequence of records sharing one schema.
// Sub-tables returned by Slice and FilterBy never alias writable storage of
// the parent.
type Table struct {
	mtype  MeasurementType
	schema *Schema
	rows   []Record
}

func newTable(mtype MeasurementType, schema *Schema, rows []Record) *Table {
	return &Table{mtype: mtype, schema: schema, rows: rows[:len(rows):len(rows)]}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.rows)
}

// MeasurementType returns the type every record of the table belongs to.
func (t *Table) MeasurementType() MeasurementType {
	return t.mtype
}

// Schema returns the composed schema of the records.
func (t *Table) Schema() *Schema {
	return t.schema
}

// Row returns record i. Negative indexes count from the end. It panics when i
// is out of range, like indexing a slice.
func (t *Table) Row(i int) Record {
	if i < 0 {
		i += len(t.rows)
	}
	return t.rows[i]
}

// Rows returns a copy of the records.
func (t *Table) Rows() []Record {
	out := make([]Record, len(t.rows))
	copy(out, t.rows)
	return out
}

// Slice returns records [begin, end) with Python slice semantics: negative
// bounds count from the end and out-of-range bounds are clamped.
func (t *Table) Slice(begin, end int) *Table {
	n := len(t.rows)
	begin = clampIndex(begin, n)
	end = clampIndex(end, n)
	if end < begin {
		end = begin
	}
	return newTable(t.mtype, t.schema, t.rows[begin:end])
}

// From returns the records from begin to the end of the table.
func (t *Table) From(begin int) *Table {
	return t.Slice(begin, len(t.rows))
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// Column returns the values of one column, one per record.
func (t *Table) Column(name string) ([]Value, error) {
	if _, ok := t.schema.Index(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i], _ = r.Get(name)
	}
	return out, nil
}

// Floats returns a numeric column as float64 values.
func (t *Table) Floats(name string) ([]float64, error) {
	f, err := t.field(name)
	if err != nil {
		return nil, err
	}
	if f.Kind == KindString {
		return nil, fmt.Errorf("%w: %q is a string column", ErrUnknownField, name)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Float(name)
	}
	return out, nil
}

// Ints returns a numeric column as int64 values.
func (t *Table) Ints(name string) ([]int64, error) {
	f, err := t.field(name)
	if err != nil {
		return nil, err
	}
	if f.Kind == KindString {
		return nil, fmt.Errorf("%w: %q is a string column", ErrUnknownField, name)
	}
	out := make([]int64, len(t.rows))
	for i, r := range t.rows {
		v, _ := r.Get(name)
		out[i] = v.Int()
	}
	return out, nil
}

// Strings returns a column formatted as text.
func (t *Table) Strings(name string) ([]string, error) {
	if _, err := t.field(name); err != nil {
		return nil, err
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		v, _ := r.Get(name)
		out[i] = v.Text()
	}
	return out, nil
}

// Timestamps returns the derived timestamp column.
func (t *Table) Timestamps() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Timestamp
	}
	return out
}

func (t *Table) field(name string) (Field, error) {
	f, ok := t.schema.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}
