package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"ldlookup/internal/builder"
	"ldlookup/internal/ldparse"
)

func newSetupCommand(logger *slog.Logger) *cobra.Command {
	var (
		input          string
		delimiter      string
		hasHeader      bool
		indexIDColumn  string
		ldIDColumn     string
		mafColumn      string
		r2Column       string
		r2Threshold    float64
		maxKeySize     uint32
		nLDBins        uint64
		perLDBin       uint64
		nMAFBins       uint64
		perMAFBin      uint64
	)

	cmd := &cobra.Command{
		Use:   "setup <dataset-dir>",
		Short: "Build a dataset from a delimited LD input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetDir := args[0]
			log := logger.With("component", "cli.setup")

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
				IndexKeyMaxSize: maxKeySize,
				NSurrogatesBins: builder.Stratification{NBins: nLDBins, PerBin: perLDBin},
				MAFBins:         builder.Stratification{NBins: nMAFBins, PerBin: perMAFBin},
				Logger:          logger,
			}

			result, err := builder.Build(opts)
			if err != nil {
				return err
			}

			size := datasetSize(datasetDir)
			log.Info("dataset built",
				"variants", result.IndexVariantCount,
				"pairs", result.PairCount,
				"invalid_lines", result.InvalidLineCount,
				"size", datasize.ByteSize(size).HumanReadable())
			fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d index variants, %d LD pairs, %d invalid lines skipped, %s on disk\n",
				datasetDir, result.IndexVariantCount, result.PairCount, result.InvalidLineCount, datasize.ByteSize(size).HumanReadable())
			return nil
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
	cmd.Flags().Uint32Var(&maxKeySize, "max-key-size", 0, "max index id length in bytes (0: discover from input)")
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

// datasetSize sums the size of every file directly inside dir; a
// dataset directory never nests subdirectories, so a single
// non-recursive read suffices.
func datasetSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}
