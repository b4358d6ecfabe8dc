package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basekick-labs/omlplot/internal/config"
	"github.com/basekick-labs/omlplot/internal/site"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var header = strings.Repeat("h\n", oml.HeaderLines)

// vgDPI is the default resolution of vgimg canvases.
const vgDPI = 96

func load(t *testing.T, typeName, body string) *oml.Table {
	t.Helper()
	l, err := oml.LoaderFor(typeName)
	require.NoError(t, err)
	table, err := l.Load(strings.NewReader(header + body))
	require.NoError(t, err)
	return table
}

func consumptionTable(t *testing.T) *oml.Table {
	return load(t, oml.Consumption,
		"0 1 1 10 0 0.10 3.3 0.030\n"+
			"0 1 2 10 100000 0.12 3.3 0.036\n"+
			"0 1 3 10 200000 0.11 3.2 0.034\n"+
			"0 1 4 10 300000 0.13 3.3 0.039\n")
}

func radioTable(t *testing.T) *oml.Table {
	return load(t, oml.Radio,
		"0 2 1 10 0 11 -91\n"+
			"0 2 2 10 100000 26 -45\n"+
			"0 2 3 10 200000 11 -88\n"+
			"0 2 4 10 300000 26 -47\n")
}

func poseTable(t *testing.T) *oml.Table {
	return load(t, oml.RobotPose,
		"0 10 1 10 0 0.0 0.0 0.0\n"+
			"0 10 2 10 500000 1.0 0.5 0.4\n"+
			"0 10 3 11 0 2.0 1.5 0.8\n")
}

func newRenderer(t *testing.T, format string, report *bytes.Buffer) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	resolver := storage.NewResolver(config.StorageConfig{}, 0, zerolog.Nop())
	t.Cleanup(func() { resolver.Close() })

	opts := Options{
		Width:     3 * vg.Inch,
		Height:    2 * vg.Inch,
		Format:    format,
		OutputDir: dir,
		Prefix:    "node1_",
	}
	if report != nil {
		opts.Report = report
	}
	r, err := New(opts, resolver, zerolog.Nop())
	require.NoError(t, err)
	return r, dir
}

func decodePNG(t *testing.T, path string) image.Config {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	return cfg
}

func TestNew_Invalid(t *testing.T) {
	resolver := storage.NewResolver(config.StorageConfig{}, 0, zerolog.Nop())
	defer resolver.Close()

	_, err := New(Options{Width: vg.Inch, Height: vg.Inch, Format: "gif", OutputDir: "."}, resolver, zerolog.Nop())
	assert.Error(t, err)
	_, err = New(Options{Width: 0, Height: vg.Inch, Format: "png", OutputDir: "."}, resolver, zerolog.Nop())
	assert.Error(t, err)
	_, err = New(Options{Width: vg.Inch, Height: vg.Inch, Format: "png", OutputDir: "gs://x/y"}, resolver, zerolog.Nop())
	assert.Error(t, err)
}

func TestConsumption(t *testing.T) {
	var report bytes.Buffer
	r, dir := newRenderer(t, "png", &report)

	written, err := r.Consumption(context.Background(), consumptionTable(t), "Node",
		[]string{SelectPower, SelectCurrent, SelectAll, SelectTime})
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "node1_consumption_power.png"),
		filepath.Join(dir, "node1_consumption_current.png"),
		filepath.Join(dir, "node1_consumption_all.png"),
		filepath.Join(dir, "node1_consumption_clock.png"),
	}
	assert.Equal(t, want, written)

	for _, path := range written {
		cfg := decodePNG(t, path)
		assert.Equal(t, 3*vgDPI, cfg.Width, path)
		assert.Equal(t, 2*vgDPI, cfg.Height, path)
	}
	assert.Contains(t, report.String(), "NB Points      = 4")
}

func TestConsumption_NoSelection(t *testing.T) {
	r, _ := newRenderer(t, "png", nil)
	written, err := r.Consumption(context.Background(), consumptionTable(t), "Node", nil)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestRadio(t *testing.T) {
	r, dir := newRenderer(t, "svg", nil)

	written, err := r.Radio(context.Background(), radioTable(t), "Node",
		[]string{SelectJoined, SelectSeparated})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "node1_radio_joined.svg"),
		filepath.Join(dir, "node1_radio_channel_11.svg"),
		filepath.Join(dir, "node1_radio_channel_26.svg"),
	}, written)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
	assert.Contains(t, string(data), "Node Channel 26")
}

func TestRadio_Empty(t *testing.T) {
	r, _ := newRenderer(t, "png", nil)
	empty := load(t, oml.Radio, "")

	written, err := r.Radio(context.Background(), empty, "Node", []string{SelectJoined})
	require.NoError(t, err)
	assert.Empty(t, written)

	_, err = r.Radio(context.Background(), empty, "Node", []string{SelectTime})
	assert.ErrorIs(t, err, oml.ErrTooFewSamples)
}

func writeMapImage(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for x := 0; x < 20; x++ {
		img.Set(x, 5, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "map.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestTrajectory(t *testing.T) {
	r, dir := newRenderer(t, "png", nil)

	scene := Scene{
		Pose: poseTable(t),
		Map: &site.Map{
			Marker: "f", File: writeMapImage(t, t.TempDir()),
			Ratio: 0.5, SizeX: 20, SizeY: 10, OffsetX: -1, OffsetY: -1,
		},
		Decos: []site.Deco{
			{Marker: "o", Color: "red", Size: 20, X: 1, Y: 1},
			{Marker: "^", Color: "#00ff00", Size: 10, X: 2, Y: 0},
		},
		Circuit: &site.Circuit{
			Coordinates: []site.Checkpoint{{Name: "0", X: 0, Y: 0}, {Name: "1", X: 2, Y: 0}, {Name: "2", X: 2, Y: 2}},
			Points:      []string{"0", "1", "2"},
		},
	}

	written, drawn, err := r.Trajectory(context.Background(), scene, "Robot",
		[]string{SelectTraj, SelectAngle, SelectTime})
	require.NoError(t, err)
	assert.True(t, drawn)
	assert.Equal(t, []string{
		filepath.Join(dir, "node1_trajectory.png"),
		filepath.Join(dir, "node1_angle.png"),
		filepath.Join(dir, "node1_robot_pose_clock.png"),
	}, written)
}

func TestTrajectory_NothingToPlot(t *testing.T) {
	r, _ := newRenderer(t, "png", nil)

	written, drawn, err := r.Trajectory(context.Background(), Scene{}, "Robot",
		[]string{SelectTraj, SelectAngle, SelectTime})
	require.NoError(t, err)
	assert.False(t, drawn)
	assert.Empty(t, written)
}

func TestTrajectory_MapImageMissing(t *testing.T) {
	r, _ := newRenderer(t, "png", nil)
	scene := Scene{Map: &site.Map{File: filepath.Join(t.TempDir(), "nope.png"), Ratio: 1, SizeX: 1, SizeY: 1}}

	_, _, err := r.Trajectory(context.Background(), scene, "Robot", []string{SelectTraj})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrajectory_MapImageURI(t *testing.T) {
	r, dir := newRenderer(t, "png", nil)
	scene := Scene{Map: &site.Map{
		File:  "file://" + writeMapImage(t, t.TempDir()),
		Ratio: 0.5, SizeX: 20, SizeY: 10,
	}}

	written, drawn, err := r.Trajectory(context.Background(), scene, "Robot", []string{SelectTraj})
	require.NoError(t, err)
	assert.True(t, drawn)
	assert.Equal(t, []string{filepath.Join(dir, "node1_trajectory.png")}, written)
}

func TestWriteClockReport(t *testing.T) {
	stats, err := oml.Clock(consumptionTable(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteClockReport(&buf, stats))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "Time from 10.000000 to 10.300000", lines[0])
	assert.Equal(t, "NB Points      = 4", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "Steptime   (ms)= 75"), lines[3])
}

func TestStyle(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, parseColor("Red"))
	assert.Equal(t, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 255}, parseColor("#123456"))
	assert.Equal(t, color.Black, parseColor("chartreuse-ish"))

	assert.Equal(t, draw.CircleGlyph{}, glyphFor("o"))
	assert.Equal(t, draw.TriangleGlyph{}, glyphFor("^"))
	assert.Equal(t, draw.RingGlyph{}, glyphFor("?"))

	assert.Equal(t, vg.Points(2), markerRadius(16))
	assert.Equal(t, vg.Points(3), markerRadius(0))
}
