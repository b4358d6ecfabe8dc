package oml

import "fmt"

// Kind is the semantic type of a column.
type Kind uint8

const (
	KindFloat Kind = iota + 1
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Base field names, shared by every measurement type.
const (
	FieldTimestamp = "timestamp"
	FieldType      = "type"
	FieldNum       = "num"
	FieldSeconds   = "t_s"
	FieldMicros    = "t_us"
)

// DefaultStringWidth is the width of string columns declared without one.
const DefaultStringWidth = 16

// Field is one column of a composed schema.
type Field struct {
	Name  string
	Kind  Kind
	Width int // string columns only
	Label string
}

// Measure declares one payload column of a measurement type.
type Measure struct {
	Name  string
	Kind  Kind
	Label string
	Width int // string columns only, DefaultStringWidth when zero
}

var baseFields = []Field{
	{Name: FieldTimestamp, Kind: KindFloat, Label: "Sample Time (sec)"},
	{Name: FieldType, Kind: KindString, Width: DefaultStringWidth},
	{Name: FieldNum, Kind: KindInt},
	{Name: FieldSeconds, Kind: KindInt},
	{Name: FieldMicros, Kind: KindInt},
}

// BaseFieldCount is the number of leading columns common to every record.
var BaseFieldCount = len(baseFields)

// Schema is the ordered composition of the base fields and a measurement
// schema. It is immutable once built.
type Schema struct {
	fields   []Field
	index    map[string]int
	measures []Measure
}

// NewSchema composes the base fields with measures. Names must be unique and
// must not shadow a base field.
func NewSchema(measures ...Measure) (*Schema, error) {
	s := &Schema{
		fields:   make([]Field, 0, len(baseFields)+len(measures)),
		index:    make(map[string]int, len(baseFields)+len(measures)),
		measures: make([]Measure, 0, len(measures)),
	}
	for _, f := range baseFields {
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	for _, m := range measures {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: empty measure name", ErrInvalidSchema)
		}
		if _, dup := s.index[m.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, m.Name)
		}
		switch m.Kind {
		case KindFloat, KindInt:
		case KindString:
			if m.Width < 0 {
				return nil, fmt.Errorf("%w: negative width for %q", ErrInvalidSchema, m.Name)
			}
			if m.Width == 0 {
				m.Width = DefaultStringWidth
			}
		default:
			return nil, fmt.Errorf("%w: field %q has unsupported kind %s", ErrInvalidSchema, m.Name, m.Kind)
		}
		s.index[m.Name] = len(s.fields)
		s.fields = append(s.fields, Field{Name: m.Name, Kind: m.Kind, Width: m.Width, Label: m.Label})
		s.measures = append(s.measures, m)
	}
	return s, nil
}

// Len returns the number of columns, base fields included.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the composed columns in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the column called name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Index returns the position of name in a row.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Measures returns a copy of the measurement part of the schema.
func (s *Schema) Measures() []Measure {
	out := make([]Measure, len(s.measures))
	copy(out, s.measures)
	return out
}

// Measure returns the measurement column called name.
func (s *Schema) Measure(name string) (Measure, bool) {
	for _, m := range s.measures {
		if m.Name == name {
			return m, true
		}
	}
	return Measure{}, false
}
