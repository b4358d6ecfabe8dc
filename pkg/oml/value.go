package oml

import (
	"strconv"
	"strings"
)

// Value is a single typed cell.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
}

// FloatValue wraps a float column value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// IntValue wraps an integer column value.
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// StringValue wraps a string column value.
func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind reports the column kind the value was parsed as.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the value as a float64. Integers are converted, strings
// yield 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	default:
		return 0
	}
}

// Int returns the value as an int64. Floats are truncated, strings yield 0.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	default:
		return 0
	}
}

// Text returns the raw string of a string value, or its formatted form.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same value. Numeric kinds compare by
// value across int and float.
func (v Value) Equal(o Value) bool {
	return v.Compare(o) == 0 && v.numeric() == o.numeric()
}

// Compare orders values: numbers before strings, numbers by value, strings
// lexically.
func (v Value) Compare(o Value) int {
	vn, on := v.numeric(), o.numeric()
	switch {
	case vn && !on:
		return -1
	case !vn && on:
		return 1
	case !vn && !on:
		return strings.Compare(v.s, o.s)
	}
	if v.kind == KindInt && o.kind == KindInt {
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		}
		return 0
	}
	a, b := v.Float(), o.Float()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Value) numeric() bool {
	return v.kind == KindFloat || v.kind == KindInt
}
