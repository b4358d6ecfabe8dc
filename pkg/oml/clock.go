package oml

import (
	"errors"
	"math"
)

// ErrTooFewSamples is returned by Clock when fewer than two records exist.
var ErrTooFewSamples = errors.New("clock verification needs at least two samples")

// ClockStats summarizes the sampling clock of a table. Millisecond values
// are computed on the differences between consecutive timestamps.
type ClockStats struct {
	First    float64
	Last     float64
	Points   int
	Duration float64 // seconds
	StepMs   float64
	MeanMs   float64
	StdMs    float64
	MaxMs    float64
	MinMs    float64
	DiffsMs  []float64
}

// Clock computes the sampling clock statistics of t.
func Clock(t *Table) (ClockStats, error) {
	n := t.Len()
	if n < 2 {
		return ClockStats{}, ErrTooFewSamples
	}
	ts := t.Timestamps()

	st := ClockStats{
		First:   ts[0],
		Last:    ts[n-1],
		Points:  n,
		DiffsMs: make([]float64, n-1),
		MaxMs:   math.Inf(-1),
		MinMs:   math.Inf(1),
	}
	st.Duration = st.Last - st.First
	st.StepMs = 1000 * st.Duration / float64(n)

	var sum float64
	for i := 1; i < n; i++ {
		d := (ts[i] - ts[i-1]) * 1000
		st.DiffsMs[i-1] = d
		sum += d
		st.MaxMs = math.Max(st.MaxMs, d)
		st.MinMs = math.Min(st.MinMs, d)
	}
	st.MeanMs = sum / float64(n-1)

	var sq float64
	for _, d := range st.DiffsMs {
		sq += (d - st.MeanMs) * (d - st.MeanMs)
	}
	st.StdMs = math.Sqrt(sq / float64(n-1))
	return st, nil
}
