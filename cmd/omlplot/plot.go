package main

import (
	"context"
	"fmt"

	"github.com/basekick-labs/omlplot/internal/export"
	"github.com/basekick-labs/omlplot/internal/render"
	"github.com/basekick-labs/omlplot/internal/site"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

// sampleFlags are the input and sample window flags of the plot commands.
type sampleFlags struct {
	input string
	title string
	begin int
	end   int
}

func (f *sampleFlags) register(cmd *cobra.Command, title string, inputRequired bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "OML file to plot")
	fl.StringVarP(&f.title, "label", "l", title, "graph title")
	fl.IntVarP(&f.begin, "begin", "b", 0, "sample start")
	fl.IntVarP(&f.end, "end", "e", -1, "sample end")
	if inputRequired {
		_ = cmd.MarkFlagRequired("input")
	}
}

// choice is a boolean flag selecting one figure.
type choice struct {
	flag      string
	shorthand string
	selection string
	usage     string
}

func addChoices(cmd *cobra.Command, choices []choice) {
	for _, c := range choices {
		cmd.Flags().BoolP(c.flag, c.shorthand, false, c.usage)
	}
}

// chosen returns the selections whose flag is set, or def when none is.
func chosen(cmd *cobra.Command, choices []choice, def string) []string {
	var sel []string
	for _, c := range choices {
		if on, _ := cmd.Flags().GetBool(c.flag); on {
			sel = append(sel, c.selection)
		}
	}
	if len(sel) == 0 {
		return []string{def}
	}
	return sel
}

// renderer returns a renderer whose files are prefixed with the base name
// of input.
func (a *app) renderer(input string) (*render.Renderer, error) {
	opts := render.Options{
		Width:     vg.Length(a.cfg.Plot.WidthIn) * vg.Inch,
		Height:    vg.Length(a.cfg.Plot.HeightIn) * vg.Inch,
		Format:    a.cfg.Plot.Format,
		OutputDir: a.cfg.Plot.OutputDir,
		Report:    a.stdout,
	}
	if input != "" {
		opts.Prefix = export.Stem(input) + "_"
	}
	return render.New(opts, a.resolver, log.Logger)
}

func (a *app) printWritten(files []string) {
	for _, f := range files {
		fmt.Fprintln(a.stdout, f)
	}
}

var consumChoices = []choice{
	{"all", "a", render.SelectAll, "plot all stats"},
	{"power", "p", render.SelectPower, "plot power"},
	{"voltage", "v", render.SelectVoltage, "plot voltage"},
	{"current", "c", render.SelectCurrent, "plot current"},
	{"time", "t", render.SelectTime, "plot time verification"},
}

func (a *app) consumCommand() *cobra.Command {
	var f sampleFlags
	cmd := &cobra.Command{
		Use:   "consum -i FILE",
		Short: "Plot a consumption OML file",
		Long: `Plot the power, voltage and current of a consumption OML file against
time. Without a selection, all three are drawn in one figure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.load(cmd.Context(), f.input, oml.Consumption)
			if err != nil {
				return err
			}
			r, err := a.renderer(f.input)
			if err != nil {
				return err
			}
			files, err := r.Consumption(cmd.Context(), t.Slice(f.begin, f.end), f.title, chosen(cmd, consumChoices, render.SelectAll))
			a.printWritten(files)
			return err
		},
	}
	f.register(cmd, "Node", true)
	addChoices(cmd, consumChoices)
	return cmd
}

var radioChoices = []choice{
	{"all", "a", render.SelectJoined, "plot all channels in one figure"},
	{"plot", "p", render.SelectSeparated, "plot one figure per channel"},
	{"time", "t", render.SelectTime, "plot time verification"},
}

func (a *app) radioCommand() *cobra.Command {
	var f sampleFlags
	cmd := &cobra.Command{
		Use:   "radio -i FILE",
		Short: "Plot a radio OML file",
		Long: `Plot the RSSI of a radio OML file against time, per channel. Without a
selection, every channel is drawn in one figure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.load(cmd.Context(), f.input, oml.Radio)
			if err != nil {
				return err
			}
			r, err := a.renderer(f.input)
			if err != nil {
				return err
			}
			files, err := r.Radio(cmd.Context(), t.Slice(f.begin, f.end), f.title, chosen(cmd, radioChoices, render.SelectJoined))
			a.printWritten(files)
			return err
		},
	}
	f.register(cmd, "Node", true)
	addChoices(cmd, radioChoices)
	return cmd
}

var trajChoices = []choice{
	{"traj", "t", render.SelectTraj, "plot the trajectory on the site map"},
	{"angle", "a", render.SelectAngle, "plot the robot angle"},
	{"time", "", render.SelectTime, "plot time verification"},
}

func (a *app) trajCommand() *cobra.Command {
	var (
		f           sampleFlags
		circuitFile string
		mapsFile    string
	)
	cmd := &cobra.Command{
		Use:   "traj [-i FILE]",
		Short: "Plot a robot trajectory",
		Long: `Plot a robot pose OML file over the site map, together with the
decorations of the maps file and the theoretical circuit. Every input is
optional; nothing is written when nothing can be drawn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var scene render.Scene

			if f.input != "" {
				t, err := a.load(cmd.Context(), f.input, oml.RobotPose)
				if err != nil {
					return err
				}
				scene.Pose = t.Slice(f.begin, f.end)
			}
			if circuitFile != "" {
				c, err := a.loadCircuit(cmd.Context(), circuitFile)
				if err != nil {
					return fmt.Errorf("loading circuit %s: %w", circuitFile, err)
				}
				scene.Circuit = c
			}
			if mapsFile != "" {
				m, decos, err := a.loadMapFile(cmd.Context(), mapsFile)
				if err != nil {
					return fmt.Errorf("loading maps %s: %w", mapsFile, err)
				}
				scene.Map = m
				scene.Decos = decos
			}

			r, err := a.renderer(f.input)
			if err != nil {
				return err
			}
			files, drawn, err := r.Trajectory(cmd.Context(), scene, f.title, chosen(cmd, trajChoices, render.SelectTraj))
			a.printWritten(files)
			if err != nil {
				return err
			}
			if !drawn {
				fmt.Fprintln(a.stdout, "Nothing to plot")
			}
			return nil
		},
	}
	f.register(cmd, "Robot", false)
	cmd.Flags().StringVar(&circuitFile, "circuit-file", "", "JSON circuit file, local or s3:// / azure://")
	cmd.Flags().StringVar(&mapsFile, "maps-file", "", "site map description file, local or s3:// / azure://")
	addChoices(cmd, trajChoices)
	return cmd
}

// loadCircuit reads a circuit file from any supported location.
func (a *app) loadCircuit(ctx context.Context, uri string) (*site.Circuit, error) {
	rc, err := a.resolver.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return site.ParseCircuit(rc)
}

// loadMapFile reads a map description. Its image is looked up next to it,
// on the same backend.
func (a *app) loadMapFile(ctx context.Context, uri string) (*site.Map, []site.Deco, error) {
	loc, err := storage.ParseLocation(uri)
	if err != nil {
		return nil, nil, err
	}
	rc, err := a.resolver.Open(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()
	return site.ParseMapFile(rc, loc.Dir().String())
}
