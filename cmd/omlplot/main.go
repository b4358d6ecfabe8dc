package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/basekick-labs/omlplot/internal/config"
	"github.com/basekick-labs/omlplot/internal/logger"
	"github.com/basekick-labs/omlplot/internal/metrics"
	"github.com/basekick-labs/omlplot/internal/shutdown"
	"github.com/basekick-labs/omlplot/internal/storage"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds what every subcommand shares once the configuration is loaded.
type app struct {
	configPath  string
	metricsFile string

	cfg      *config.Config
	resolver *storage.Resolver
	coord    *shutdown.Coordinator
	stop     context.CancelFunc
	logger   zerolog.Logger

	stdout io.Writer
	stderr io.Writer
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if a.stop != nil {
		a.stop()
	}
	if a.coord != nil {
		if cerr := a.coord.Shutdown(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("Failed to release resources")
		}
		metrics.Get().LogSummary()
		if a.metricsFile != "" {
			if merr := metrics.Get().WriteTextfile(a.metricsFile); merr != nil {
				a.logger.Warn().Err(merr).Msg("Failed to write metrics")
			}
		}
	}

	if err != nil {
		var le *loadError
		if errors.As(err, &le) {
			fmt.Fprintln(stderr, le.Error())
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "omlplot",
		Short: "Plot and convert OML measurement files",
		Long: `omlplot loads the OML files written by testbed nodes (consumption,
radio and robot pose measurements) and draws them as PNG, SVG or PDF
figures, or converts them to Parquet or MessagePack.

Inputs may be local paths or s3:// and azure:// locations, optionally
compressed with gzip or zstd.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default: omlplot.toml in ., /etc/omlplot, $HOME/.omlplot)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("output-dir", ".", "directory or s3:// / azure:// prefix receiving figures")
	pf.String("figure-format", "png", "figure format: png, svg or pdf")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")

	root.AddCommand(
		a.consumCommand(),
		a.radioCommand(),
		a.trajCommand(),
		a.exportCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the configuration, then the logger, storage and signal
// handling of the run.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.SetupWriter(a.stderr, cfg.Log.Level, cfg.Log.Format)
	a.logger = logger.Get("cli")
	metrics.Init(log.Logger)
	a.logger.Debug().Str("version", Version).Str("command", cmd.Name()).Msg("Starting omlplot")

	a.coord = shutdown.New(shutdownTimeout, log.Logger)
	a.resolver = storage.NewResolver(cfg.Storage, cfg.Input.MaxSize, log.Logger)
	a.coord.Register("storage", a.resolver, shutdown.PriorityStorage)

	ctx, stop := a.coord.Context(cmd.Context())
	a.stop = stop
	cmd.SetContext(ctx)
	return nil
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No configuration needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "omlplot %s\n", Version)
		},
	}
}

// loadError reports an input that could not be loaded as the requested
// measurement type.
type loadError struct {
	file  string
	mtype string
	err   error
}

func (e *loadError) Error() string {
	return fmt.Sprintf("Error loading %s as %s: %v", e.file, e.mtype, e.err)
}

func (e *loadError) Unwrap() error {
	return e.err
}

// load reads the OML file at uri as typeName.
func (a *app) load(ctx context.Context, uri, typeName string) (*oml.Table, error) {
	l, err := oml.LoaderFor(typeName)
	if err != nil {
		return nil, &loadError{file: uri, mtype: typeName, err: err}
	}

	rc, err := a.resolver.Open(ctx, uri)
	if err != nil {
		return nil, &loadError{file: uri, mtype: typeName, err: fmt.Errorf("%w: %w", oml.ErrSourceUnavailable, err)}
	}
	defer rc.Close()

	start := time.Now()
	t, stats, err := l.Read(rc, uri)
	metrics.Get().RecordLoad(stats.Kept, stats.Dropped, time.Since(start), err)
	if err != nil {
		return nil, &loadError{file: uri, mtype: typeName, err: err}
	}

	a.logger.Info().
		Str("source", uri).
		Str("type", typeName).
		Int("rows", stats.Kept).
		Dur("duration", time.Since(start)).
		Msg("Loaded input")
	if stats.Dropped > 0 {
		a.logger.Debug().
			Str("source", uri).
			Int("lines", stats.Lines).
			Int("dropped", stats.Dropped).
			Msg("Dropped malformed lines")
	}
	return t, nil
}
