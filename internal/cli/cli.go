// Package cli implements the ldlookup command tree: spf13/cobra
// subcommands that translate flags into calls against the core builder
// and reader packages.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the "ldlookup" root command with all
// subcommands wired in. logger is the base logger constructed in main;
// individual components scope it further.
func NewRootCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ldlookup",
		Short:         "Build and query on-disk linkage-disequilibrium lookup tables",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		newSetupCommand(logger),
		newGetVariantsInLDWithCommand(logger),
		newGetVariantsSimilarToCommand(logger),
		newGetVariantsWithStatsLikeCommand(logger),
		newGetVariantStatisticsCommand(logger),
		newSampleCommand(logger),
		newWatchCommand(logger),
		newExportCommand(logger),
		newImportCommand(logger),
		newExploreCommand(logger),
	)

	return cmd
}
