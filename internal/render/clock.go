package render

import (
	"context"
	"fmt"
	"io"

	"github.com/basekick-labs/omlplot/pkg/oml"
)

// ClockTitle is the title of the clock verification figure.
const ClockTitle = "Clock time verification"

// Clock prints the clock statistics of t to the report writer and draws
// the inter-sample differences in milliseconds.
func (r *Renderer) Clock(ctx context.Context, t *oml.Table) (string, error) {
	stats, err := oml.Clock(t)
	if err != nil {
		return "", err
	}
	if r.opts.Report != nil {
		if err := WriteClockReport(r.opts.Report, stats); err != nil {
			return "", err
		}
	}

	xs := make([]float64, len(stats.DiffsMs))
	for i := range xs {
		xs[i] = float64(i)
	}
	p, err := xyPlot(ClockTitle, "Sample", "Clock diff (ms)", xs, stats.DiffsMs)
	if err != nil {
		return "", err
	}
	return r.save(ctx, t.MeasurementType().Name+"_clock", p)
}

// WriteClockReport prints stats in the layout of the testbed tools.
func WriteClockReport(w io.Writer, s oml.ClockStats) error {
	_, err := fmt.Fprintf(w,
		"Time from %f to %f\n"+
			"NB Points      = %d\n"+
			"Duration    (s)= %g\n"+
			"Steptime   (ms)= %g\n"+
			"Clock mean (ms)= %g\n"+
			"Clock std  (ms)= %g\n"+
			"Clock max  (ms)= %g\n"+
			"Clock min  (ms)= %g\n",
		s.First, s.Last, s.Points, s.Duration, s.StepMs,
		s.MeanMs, s.StdMs, s.MaxMs, s.MinMs)
	return err
}
