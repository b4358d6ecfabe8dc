package render

import (
	"context"
	"fmt"

	"github.com/basekick-labs/omlplot/pkg/oml"
	"gonum.org/v1/plot"
)

// Figure selections.
const (
	SelectAll       = "all"
	SelectPower     = "power"
	SelectVoltage   = "voltage"
	SelectCurrent   = "current"
	SelectTime      = "time"
	SelectJoined    = "joined"
	SelectSeparated = "separated"
	SelectTraj      = "traj"
	SelectAngle     = "angle"
)

func selected(selection []string, name string) bool {
	for _, s := range selection {
		if s == name {
			return true
		}
	}
	return false
}

// Consumption draws a consumption table. power, voltage and current each
// get their own figure; all stacks the three in one figure; time adds the
// clock verification.
func (r *Renderer) Consumption(ctx context.Context, t *oml.Table, title string, selection []string) ([]string, error) {
	var written []string

	for _, name := range []string{SelectPower, SelectVoltage, SelectCurrent} {
		if !selected(selection, name) {
			continue
		}
		out, err := r.Measures(ctx, t, title, "consumption_"+name, name)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}

	if selected(selection, SelectAll) {
		out, err := r.Measures(ctx, t, title, "consumption_all", SelectPower, SelectVoltage, SelectCurrent)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}

	if selected(selection, SelectTime) {
		out, err := r.Clock(ctx, t)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// Measures draws one panel per named column against time, stacked in the
// figure file named figure. Panels are titled "<title> <column>".
func (r *Renderer) Measures(ctx context.Context, t *oml.Table, title, figure string, names ...string) (string, error) {
	plots := make([]*plot.Plot, 0, len(names))
	for _, name := range names {
		xs, ys, err := series(t, name)
		if err != nil {
			return "", err
		}
		p, err := xyPlot(fmt.Sprintf("%s %s", title, name), timeLabel(t), measureLabel(t, name), xs, ys)
		if err != nil {
			return "", err
		}
		plots = append(plots, p)
	}
	return r.save(ctx, figure, plots...)
}
