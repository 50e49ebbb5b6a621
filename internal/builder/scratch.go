package builder

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"ldlookup/internal/logging"
)

// Generation identifies one rebuild of a watched dataset. Rebuild never
// mutates a sealed dataset in place: it always builds a fresh generation
// into a new directory and only removes the previous generation after
// the new one is confirmed complete.
type Generation = uuid.UUID

// Rebuild builds a fresh dataset from opts and installs it at opts.Dir,
// replacing any dataset already there. Unlike Build, Rebuild tolerates
// opts.Dir already existing: the existing directory (if any) is moved
// aside, the new dataset is built fresh via Build, and the old directory
// is only removed once the new build has fully succeeded. If the build
// fails, the previous dataset is restored.
func Rebuild(opts Options, logger *slog.Logger) (Result, Generation, error) {
	logger = logging.Default(logger).With("component", "builder.rebuild")
	gen := uuid.New()

	var previousDir string
	if _, err := os.Stat(opts.Dir); err == nil {
		previousDir = opts.Dir + ".prev-" + gen.String()
		if err := os.Rename(opts.Dir, previousDir); err != nil {
			return Result{}, gen, fmt.Errorf("rebuild %q: move aside previous generation: %w", opts.Dir, err)
		}
	} else if !os.IsNotExist(err) {
		return Result{}, gen, fmt.Errorf("rebuild %q: %w", opts.Dir, err)
	}

	result, err := Build(opts)
	if err != nil {
		if previousDir != "" {
			_ = os.Rename(previousDir, opts.Dir)
		}
		return Result{}, gen, fmt.Errorf("rebuild %q: %w", opts.Dir, err)
	}

	if previousDir != "" {
		if err := os.RemoveAll(previousDir); err != nil {
			logger.Warn("failed to remove previous generation", "dir", previousDir, "error", err)
		}
	}

	logger.Info("rebuild complete", "generation", gen, "variants", result.IndexVariantCount)
	return result, gen, nil
}
