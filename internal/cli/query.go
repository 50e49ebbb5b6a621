package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"ldlookup/internal/reader"
)

func addCommonQueryFlags(cmd *cobra.Command, keysFile *string) {
	cmd.Flags().StringVar(keysFile, "keys-file", "", "file with one variant id per line, instead of inline ids")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")
}

func newGetVariantsInLDWithCommand(logger *slog.Logger) *cobra.Command {
	var keysFile string

	cmd := &cobra.Command{
		Use:   "get_variants_in_ld_with <dataset-dir> [id...]",
		Short: "List the variants in LD with one or more index variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer rd.Close()

			ids, err := resolveKeys(args[1:], keysFile)
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			for _, id := range ids {
				surrogates, err := rd.VariantsInLDWith(id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				if outputFormat(cmd) == "json" {
					if err := p.json(map[string]any{"variant_id": id, "surrogates": surrogates}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", id)
				if err := p.list(surrogates); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addCommonQueryFlags(cmd, &keysFile)
	return cmd
}

func newGetVariantsSimilarToCommand(logger *slog.Logger) *cobra.Command {
	var keysFile string

	cmd := &cobra.Command{
		Use:   "get_variants_similar_to <dataset-dir> [id...]",
		Short: "List variants stratified-similar to one or more index variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer rd.Close()

			ids, err := resolveKeys(args[1:], keysFile)
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			for _, id := range ids {
				similar, err := rd.VariantsSimilarTo(id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				if outputFormat(cmd) == "json" {
					if err := p.json(map[string]any{"variant_id": id, "similar": similar}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", id)
				if err := p.list(similar); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addCommonQueryFlags(cmd, &keysFile)
	return cmd
}

func newGetVariantsWithStatsLikeCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get_variants_with_stats_like <dataset-dir> <maf> <n_surrogates>",
		Short: "List variants in the stratum a literal (maf, n_surrogates) pair falls into",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer rd.Close()

			maf, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse maf %q: %w", args[1], err)
			}
			n, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("parse n_surrogates %q: %w", args[2], err)
			}

			ids, err := rd.VariantsWithStatsLike(maf, n)
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			return p.list(ids)
		},
	}
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}

func newGetVariantStatisticsCommand(logger *slog.Logger) *cobra.Command {
	var keysFile string

	cmd := &cobra.Command{
		Use:   "get_variant_statistics <dataset-dir> [id...]",
		Short: "Report MAF and surrogate count for one or more index variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer rd.Close()

			ids, err := resolveKeys(args[1:], keysFile)
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			if outputFormat(cmd) == "json" {
				type stat struct {
					VariantID   string  `json:"variant_id"`
					MAF         float64 `json:"maf"`
					NSurrogates uint64  `json:"n_surrogates"`
				}
				var stats []stat
				for _, id := range ids {
					maf, n, err := rd.VariantStatistics(id)
					if err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					stats = append(stats, stat{VariantID: id, MAF: maf, NSurrogates: n})
				}
				return p.json(stats)
			}

			for _, id := range ids {
				maf, n, err := rd.VariantStatistics(id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				p.kv([][2]string{
					{"variant_id", id},
					{"maf", strconv.FormatFloat(maf, 'f', -1, 64)},
					{"n_surrogates", strconv.FormatUint(n, 10)},
				})
			}
			return nil
		},
	}
	addCommonQueryFlags(cmd, &keysFile)
	return cmd
}

func newSampleCommand(logger *slog.Logger) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "sample <dataset-dir> <id>",
		Short: "Draw uniform random samples, with replacement, from a variant's similarity stratum",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := reader.Open(args[0], logger)
			if err != nil {
				return err
			}
			defer rd.Close()

			samples, err := rd.SampleSimilar(args[1], count)
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			return p.list(samples)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "k", 1, "number of samples to draw")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}
