package render

import (
	"context"
	"fmt"
	"image"
	imgdraw "image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/basekick-labs/omlplot/internal/site"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Scene is everything drawn on a trajectory figure. Any part may be absent.
type Scene struct {
	Pose    *oml.Table
	Map     *site.Map
	Decos   []site.Deco
	Circuit *site.Circuit
}

func (s Scene) empty() bool {
	return s.Pose == nil && s.Map == nil && len(s.Decos) == 0 && s.Circuit == nil
}

// Trajectory draws a robot scene. traj draws the map view, angle the yaw
// against time and time the clock verification; the last two need a pose
// table. It reports false when nothing was drawn.
func (r *Renderer) Trajectory(ctx context.Context, scene Scene, title string, selection []string) ([]string, bool, error) {
	var written []string

	if selected(selection, SelectTraj) && !scene.empty() {
		out, err := r.Map(ctx, scene, title)
		if err != nil {
			return written, false, err
		}
		written = append(written, out)
	}
	if selected(selection, SelectAngle) && scene.Pose != nil {
		out, err := r.Angle(ctx, scene.Pose, title)
		if err != nil {
			return written, false, err
		}
		written = append(written, out)
	}
	if selected(selection, SelectTime) && scene.Pose != nil {
		out, err := r.Clock(ctx, scene.Pose)
		if err != nil {
			return written, false, err
		}
		written = append(written, out)
	}
	return written, len(written) > 0, nil
}

// Map draws the site map in the background, then the decorations, the
// theoretical circuit and the actual robot path.
func (r *Renderer) Map(ctx context.Context, scene Scene, title string) (string, error) {
	p := newPlot(title+" trajectory", "X (m)", "Y (m)")

	if scene.Map != nil {
		img, err := r.loadGray(ctx, scene.Map.File)
		if err != nil {
			return "", err
		}
		left, right, bottom, top := scene.Map.Extent()
		p.Add(plotter.NewImage(img, left, bottom, right, top))
	}

	for _, d := range scene.Decos {
		s, err := plotter.NewScatter(plotter.XYs{{X: d.X, Y: d.Y}})
		if err != nil {
			return "", fmt.Errorf("could not create decoration: %w", err)
		}
		s.GlyphStyle = draw.GlyphStyle{
			Color:  parseColor(d.Color),
			Radius: markerRadius(d.Size),
			Shape:  glyphFor(d.Marker),
		}
		p.Add(s)
	}

	if scene.Circuit != nil && len(scene.Circuit.Coordinates) > 0 {
		if err := addCircuit(p, scene.Circuit); err != nil {
			return "", err
		}
	}

	if scene.Pose != nil {
		xs, err := scene.Pose.Floats("x")
		if err != nil {
			return "", err
		}
		ys, err := scene.Pose.Floats("y")
		if err != nil {
			return "", err
		}
		pts := make(plotter.XYs, len(xs))
		for i := range pts {
			pts[i].X = xs[i]
			pts[i].Y = ys[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("could not create trajectory line: %w", err)
		}
		line.Color = lineColor
		p.Add(line)
	}

	return r.save(ctx, "trajectory", p)
}

// addCircuit draws the checkpoints joined by a dashed closed polygon.
func addCircuit(p *plot.Plot, c *site.Circuit) error {
	xs, ys := c.Polygon()
	pts := make(plotter.XYs, len(xs))
	for i := range pts {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}

	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return fmt.Errorf("could not create circuit polygon: %w", err)
	}
	poly.Color = nil
	poly.LineStyle.Color = circuitColor
	poly.LineStyle.Width = vg.Points(2)
	poly.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(poly)

	points, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("could not create circuit points: %w", err)
	}
	points.GlyphStyle = draw.GlyphStyle{
		Color:  circuitColor,
		Radius: vg.Points(3),
		Shape:  draw.CircleGlyph{},
	}
	p.Add(points)
	return nil
}

// loadGray decodes a map image and converts it to grayscale.
func (r *Renderer) loadGray(ctx context.Context, path string) (image.Image, error) {
	rc, err := r.resolver.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("cannot open image map file: %w", err)
	}
	defer rc.Close()

	src, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image map file %s: %w", path, err)
	}
	gray := image.NewGray(src.Bounds())
	imgdraw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, imgdraw.Src)
	return gray, nil
}

// Angle draws the yaw angle against time.
func (r *Renderer) Angle(ctx context.Context, t *oml.Table, title string) (string, error) {
	xs, ys, err := series(t, "theta")
	if err != nil {
		return "", err
	}
	p, err := xyPlot(title+" angle", timeLabel(t), measureLabel(t, "theta"), xs, ys)
	if err != nil {
		return "", err
	}
	return r.save(ctx, "angle", p)
}
