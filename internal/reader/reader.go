// Package reader opens a sealed ldlookup dataset and services the four
// query kinds defined over it: LD surrogates of an index variant, its
// summary statistics, variants in the same similarity stratum, and
// uniform random samples from a stratum.
package reader

import (
	"errors"
	"fmt"
	"log/slog"

	"ldlookup/internal/histogram"
	"ldlookup/internal/ldtable"
	"ldlookup/internal/logging"
	"ldlookup/internal/stratatable"
	"ldlookup/internal/summarytable"
)

// Reader holds the three read-only VDH-backed tables that make up a
// sealed dataset.
type Reader struct {
	ld      *ldtable.Table
	summary *summarytable.Table
	strata  *stratatable.Table
}

// Open opens all three tables in dir read-only. The dataset must have
// been produced by a completed builder.Build call; there is no
// partial-reopen-for-append mode.
func Open(dir string, logger *slog.Logger) (*Reader, error) {
	logger = logging.Default(logger).With("component", "reader", "dir", dir)

	ld, err := ldtable.Open(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("open ld table: %w", err)
	}
	summary, err := summarytable.Open(dir, logger)
	if err != nil {
		ld.Close()
		return nil, fmt.Errorf("open summary table: %w", err)
	}
	strata, err := stratatable.Open(dir, logger)
	if err != nil {
		ld.Close()
		summary.Close()
		return nil, fmt.Errorf("open strata table: %w", err)
	}

	return &Reader{ld: ld, summary: summary, strata: strata}, nil
}

// VariantsInLDWith returns the variants found in LD with id, in the
// order they were recorded at build time.
func (r *Reader) VariantsInLDWith(id string) ([]string, error) {
	return r.ld.Lookup(id)
}

// VariantStatistics returns the MAF and number of LD surrogates recorded
// for the index variant id.
func (r *Reader) VariantStatistics(id string) (maf float64, nSurrogates uint64, err error) {
	return r.summary.Lookup(id)
}

// VariantsSimilarTo returns every index variant sharing id's similarity
// stratum (similar MAF and similar surrogate count), including id
// itself. If id's stats fall below every stratum's minimum cutpoint on
// either axis, that is reported as "no similar variants" rather than
// propagated as an error.
func (r *Reader) VariantsSimilarTo(id string) ([]string, error) {
	maf, n, err := r.summary.Lookup(id)
	if err != nil {
		return nil, err
	}
	return r.variantsWithStatsLike(maf, n)
}

// VariantsWithStatsLike returns every index variant in the stratum that
// the given (maf, nSurrogates) pair falls into.
func (r *Reader) VariantsWithStatsLike(maf float64, nSurrogates uint64) ([]string, error) {
	return r.variantsWithStatsLike(maf, nSurrogates)
}

func (r *Reader) variantsWithStatsLike(maf float64, nSurrogates uint64) ([]string, error) {
	ids, err := r.strata.Lookup(maf, nSurrogates)
	if err != nil {
		if errors.Is(err, histogram.ErrOutOfRange) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// SampleSimilar draws k variant ids, uniformly with replacement, from
// id's similarity stratum.
func (r *Reader) SampleSimilar(id string, k int) ([]string, error) {
	maf, n, err := r.summary.Lookup(id)
	if err != nil {
		return nil, err
	}
	ids, err := r.strata.LookupSample(maf, n, k)
	if err != nil {
		if errors.Is(err, histogram.ErrOutOfRange) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// Close releases all three tables' backing files.
func (r *Reader) Close() error {
	errLD := r.ld.Close()
	errSummary := r.summary.Close()
	errStrata := r.strata.Close()
	if errLD != nil {
		return fmt.Errorf("close ld table: %w", errLD)
	}
	if errSummary != nil {
		return fmt.Errorf("close summary table: %w", errSummary)
	}
	if errStrata != nil {
		return fmt.Errorf("close strata table: %w", errStrata)
	}
	return nil
}
