package oml

import (
	"errors"
	"fmt"
)

// Load errors. Every error returned by the loader wraps exactly one of these.
var (
	// ErrSourceUnavailable indicates the input could not be opened or read.
	ErrSourceUnavailable = errors.New("oml source unavailable")

	// ErrStructural indicates the input cannot be an OML file at all, e.g. it is
	// shorter than the preamble.
	ErrStructural = errors.New("oml structural parse failure")

	// ErrTypeMismatch indicates at least one record carries the tag of another
	// measurement type. It invalidates the whole load.
	ErrTypeMismatch = errors.New("oml measurement type mismatch")

	// ErrEmptyResult indicates data lines were present but none of them parsed.
	ErrEmptyResult = errors.New("no values, not an oml file")

	// ErrUnknownMeasurementType indicates a measurement type name that is not
	// registered. This is a caller error, not a parse error.
	ErrUnknownMeasurementType = errors.New("unknown oml measurement type")

	// ErrInvalidSchema indicates a measurement schema that cannot be composed
	// with the base fields.
	ErrInvalidSchema = errors.New("invalid oml schema")

	// ErrUnknownField indicates a column lookup on a name the table does not have.
	ErrUnknownField = errors.New("unknown oml field")
)

// LoadError describes a failed load. Line is the 1-based input line that
// triggered the failure, or 0 when the failure is not tied to a line.
type LoadError struct {
	Source          string
	MeasurementType string
	Line            int
	Err             error
}

func (e *LoadError) Error() string {
	src := e.Source
	if src == "" {
		src = "<stream>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("oml load %s as %s: line %d: %v", src, e.MeasurementType, e.Line, e.Err)
	}
	return fmt.Sprintf("oml load %s as %s: %v", src, e.MeasurementType, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
