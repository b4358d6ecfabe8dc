package main

import (
	"fmt"

	"github.com/basekick-labs/omlplot/internal/export"
	"github.com/basekick-labs/omlplot/pkg/oml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) exportCommand() *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "export -m TYPE FILE|DIR...",
		Short: "Convert OML files to Parquet or MessagePack",
		Long: `Convert OML files of one measurement type to Parquet or MessagePack.
Files are converted concurrently; a file that fails does not stop the
others. Outputs are named after the input base name; inputs sharing a
base name are refused. A directory, or an s3:// or azure:// prefix ending
in "/", stands for every .oml, .oml.gz and .oml.zst file below it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Export

			loader, err := oml.LoaderFor(typeName)
			if err != nil {
				return err
			}
			exporter, err := export.New(cfg, log.Logger)
			if err != nil {
				return err
			}
			batch, err := export.NewBatch(a.resolver, exporter, loader, cfg.OutputDir, cfg.Workers, log.Logger)
			if err != nil {
				return err
			}

			sources, err := a.resolver.Expand(cmd.Context(), args)
			if err != nil {
				return err
			}
			results, err := batch.Run(cmd.Context(), sources)
			for _, res := range results {
				switch {
				case res.Source == "":
					// Never started, the batch was cancelled.
				case res.Err != nil:
					fmt.Fprintf(a.stdout, "FAILED %s: %v\n", res.Source, res.Err)
				default:
					fmt.Fprintf(a.stdout, "%s -> %s (%d rows, %d dropped, %d bytes)\n",
						res.Source, res.Output, res.Stats.Kept, res.Stats.Dropped, res.Size)
				}
			}
			if err != nil {
				return err
			}

			if _, failed := batch.Counts(); failed > 0 {
				return fmt.Errorf("%d of %d files failed to export", failed, len(sources))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&typeName, "type", "m", "", "measurement type: consumption, radio or robot_pose")
	fl.StringP("format", "f", "parquet", "output format: parquet or msgpack")
	fl.String("compression", "snappy", "parquet compression: snappy, gzip, zstd or none")
	fl.Int("workers", 0, "files converted concurrently (default: CPU count, at most 8)")
	fl.StringP("export-dir", "o", ".", "directory or s3:// / azure:// prefix receiving outputs")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
