package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ldlookup/internal/builder"
	"ldlookup/internal/ldparse"
)

// newWatchCommand watches the source LD file for modifications and
// triggers a fresh setup build into a new generation on every change,
// swapping it into place via builder.Rebuild. A sealed dataset is never
// touched in place: every trigger is a full rebuild-and-swap.
func newWatchCommand(logger *slog.Logger) *cobra.Command {
	var (
		input           string
		delimiter       string
		hasHeader       bool
		indexIDColumn   string
		ldIDColumn      string
		mafColumn       string
		r2Column        string
		r2Threshold     float64
		nLDBins         uint64
		perLDBin        uint64
		nMAFBins        uint64
		perMAFBin       uint64
	)

	cmd := &cobra.Command{
		Use:   "watch <dataset-dir>",
		Short: "Rebuild the dataset whenever --input changes, replacing the previous generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetDir := args[0]
			log := logger.With("component", "cli.watch", "dir", datasetDir, "input", input)

			opts := builder.Options{
				Dir: datasetDir,
				OpenInput: func() (io.ReadCloser, error) {
					return os.Open(input)
				},
				ParseConfig: ldparse.Config{
					Delimiter: delimiter,
					HasHeader: hasHeader,
					IndexID:   parseColumn(indexIDColumn),
					LDID:      parseColumn(ldIDColumn),
					MAF:       parseColumn(mafColumn),
					R2:        parseColumn(r2Column),
				},
				R2Threshold:     r2Threshold,
				NSurrogatesBins: builder.Stratification{NBins: nLDBins, PerBin: perLDBin},
				MAFBins:         builder.Stratification{NBins: nMAFBins, PerBin: perMAFBin},
				Logger:          logger,
			}

			if _, _, err := builder.Rebuild(opts, logger); err != nil {
				return fmt.Errorf("initial build: %w", err)
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("new watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(input); err != nil {
				return fmt.Errorf("watch %q: %w", input, err)
			}

			log.Info("watching for changes")
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					log.Info("input changed, rebuilding", "event", event.Op.String())
					if _, _, err := builder.Rebuild(opts, logger); err != nil {
						log.Error("rebuild failed", "error", err)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error("watcher error", "error", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to the delimited LD input file (required)")
	cmd.Flags().StringVar(&delimiter, "delimiter", " ", "input field delimiter")
	cmd.Flags().BoolVar(&hasHeader, "has-header", false, "input's first line is a header row")
	cmd.Flags().StringVar(&indexIDColumn, "index-id-column", "1", "1-based column index or header name for index_id")
	cmd.Flags().StringVar(&ldIDColumn, "ld-id-column", "2", "1-based column index or header name for ld_id")
	cmd.Flags().StringVar(&mafColumn, "maf-column", "3", "1-based column index or header name for maf")
	cmd.Flags().StringVar(&r2Column, "r2-column", "4", "1-based column index or header name for r2")
	cmd.Flags().Float64Var(&r2Threshold, "r2-threshold", 0.5, "minimum r2 for a row to count as in LD")
	cmd.Flags().Uint64Var(&nLDBins, "n-ld-bins", 0, "number of equi-count surrogate-count strata")
	cmd.Flags().Uint64Var(&perLDBin, "index-variants-per-ld-bin", 0, "target index variants per surrogate-count stratum")
	cmd.Flags().Uint64Var(&nMAFBins, "n-maf-bins", 0, "number of equi-count MAF strata")
	cmd.Flags().Uint64Var(&perMAFBin, "index-variants-per-maf-bin", 0, "target index variants per MAF stratum")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("n-ld-bins", "index-variants-per-ld-bin")
	cmd.MarkFlagsOneRequired("n-ld-bins", "index-variants-per-ld-bin")
	cmd.MarkFlagsMutuallyExclusive("n-maf-bins", "index-variants-per-maf-bin")
	cmd.MarkFlagsOneRequired("n-maf-bins", "index-variants-per-maf-bin")

	return cmd
}
