// Command ldlookup builds and queries on-disk linkage-disequilibrium
// lookup tables.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ldlookup/internal/cli"
	"ldlookup/internal/logging"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := cli.NewRootCommand(logger)
	rootCmd.PersistentFlags().StringArray("log-level", nil, "raise one component's log level, e.g. --log-level builder=debug")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		levels, _ := cmd.Flags().GetStringArray("log-level")
		for _, spec := range levels {
			component, levelStr, ok := strings.Cut(spec, "=")
			if !ok {
				return fmt.Errorf("invalid --log-level %q: want component=level", spec)
			}
			level, err := parseLevel(levelStr)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", spec, err)
			}
			filterHandler.SetLevel(component, level)
		}
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}
