package render

import (
	"context"
	"fmt"

	"github.com/basekick-labs/omlplot/pkg/oml"
	"gonum.org/v1/plot"
)

// Radio draws a radio table. joined stacks the RSSI of every channel in one
// figure; separated writes one figure per channel; time adds the clock
// verification.
func (r *Renderer) Radio(ctx context.Context, t *oml.Table, title string, selection []string) ([]string, error) {
	var written []string

	if selected(selection, SelectJoined) {
		outs, err := r.RSSI(ctx, t, title, false)
		if err != nil {
			return written, err
		}
		written = append(written, outs...)
	}
	if selected(selection, SelectSeparated) {
		outs, err := r.RSSI(ctx, t, title, true)
		if err != nil {
			return written, err
		}
		written = append(written, outs...)
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

// RSSI draws RSSI against time for each channel in ascending order, titled
// "<title> Channel <n>".
func (r *Renderer) RSSI(ctx context.Context, t *oml.Table, title string, separated bool) ([]string, error) {
	groups, err := oml.GroupBy(t, "channel")
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		r.logger.Warn().Msg("No radio samples to draw")
		return nil, nil
	}

	plots := make([]*plot.Plot, 0, len(groups))
	for _, g := range groups {
		xs, ys, err := series(g.Table, "rssi")
		if err != nil {
			return nil, err
		}
		p, err := xyPlot(fmt.Sprintf("%s Channel %s", title, g.Key), timeLabel(t), measureLabel(t, "rssi"), xs, ys)
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}

	if !separated {
		out, err := r.save(ctx, "radio_joined", plots...)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	}

	written := make([]string, 0, len(plots))
	for i, p := range plots {
		out, err := r.save(ctx, fmt.Sprintf("radio_channel_%s", groups[i].Key), p)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}
