package oml

// Record is one parsed row: the base fields followed by the measurement
// values, in schema order.
type Record struct {
	Timestamp float64
	Type      string
	Num       int64
	Ts        int64
	Tus       int64

	values []Value
	schema *Schema
}

// Get returns the value of the column called name.
func (r Record) Get(name string) (Value, bool) {
	switch name {
	case FieldTimestamp:
		return FloatValue(r.Timestamp), true
	case FieldType:
		return StringValue(r.Type), true
	case FieldNum:
		return IntValue(r.Num), true
	case FieldSeconds:
		return IntValue(r.Ts), true
	case FieldMicros:
		return IntValue(r.Tus), true
	}
	if r.schema == nil {
		return Value{}, false
	}
	i, ok := r.schema.Index(name)
	if !ok {
		return Value{}, false
	}
	return r.values[i-BaseFieldCount], true
}

// Float is shorthand for Get(name).Float(); missing columns yield 0.
func (r Record) Float(name string) float64 {
	v, _ := r.Get(name)
	return v.Float()
}

// Values returns the whole row, base fields first.
func (r Record) Values() []Value {
	out := make([]Value, 0, BaseFieldCount+len(r.values))
	out = append(out,
		FloatValue(r.Timestamp),
		StringValue(r.Type),
		IntValue(r.Num),
		IntValue(r.Ts),
		IntValue(r.Tus),
	)
	return append(out, r.values...)
}

// Measurements returns the payload values only.
func (r Record) Measurements() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Equal reports whether both records hold the same values.
func (r Record) Equal(o Record) bool {
	if r.Timestamp != o.Timestamp || r.Type != o.Type || r.Num != o.Num || r.Ts != o.Ts || r.Tus != o.Tus {
		return false
	}
	if len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if r.values[i].kind != o.values[i].kind || !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

func timestampOf(ts, tus int64) float64 {
	return float64(ts) + float64(tus)/1e6
}
