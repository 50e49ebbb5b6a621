// Package builder drives the three-pass construction of a dataset
// directory: LDTable and SummaryTable are populated from a single
// streamed pass over the input, stratification cutpoints are derived
// from the resulting histograms, a second pass sizes each stratum, and a
// third places every index variant into its reserved slot.
//
// The whole build happens in a scratch directory and is moved into place
// with a single rename once every table is closed, so a failure partway
// through never leaves a half-built dataset at the requested path.
package builder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ldlookup/internal/histogram"
	"ldlookup/internal/ldparse"
	"ldlookup/internal/ldtable"
	"ldlookup/internal/logging"
	"ldlookup/internal/stratatable"
	"ldlookup/internal/summarytable"
)

// strataTableMaxKeySize bounds both meta-keys ("__N_SURROGATES_KEY__",
// "__MAF_KEY__") and every composite stratum key ("<int> <dotted-decimal>").
// 64 bytes comfortably covers realistic surrogate-count cutpoints and MAF
// precision; a composite key longer than this would need a
// caller-supplied override, not currently exposed.
const strataTableMaxKeySize = 64

var (
	// ErrDatasetExists is returned when Dir already exists.
	ErrDatasetExists = errors.New("builder: dataset directory already exists")

	// ErrStratificationConfig is returned when neither NBins nor PerBin is
	// set (or both are) for an axis.
	ErrStratificationConfig = errors.New("builder: exactly one of n_bins or per_bin must be set")
)

// Stratification picks how many equi-count bins to derive for one axis:
// either a bin count directly, or a target population per bin from which
// the bin count is computed.
type Stratification struct {
	NBins  uint64
	PerBin uint64
}

func (s Stratification) resolve(total uint64) (uint64, error) {
	switch {
	case s.NBins > 0 && s.PerBin == 0:
		return s.NBins, nil
	case s.NBins == 0 && s.PerBin > 0:
		n := total / s.PerBin
		if n == 0 {
			n = 1
		}
		return n, nil
	default:
		return 0, ErrStratificationConfig
	}
}

// Options configures one Build call.
type Options struct {
	// Dir is the dataset directory to create. Must not already exist.
	Dir string

	// OpenInput reopens the source data from the beginning. Called once
	// per pass: three times, or four when IndexKeyMaxSize is left at 0
	// and an extra discovery pass runs first.
	OpenInput func() (io.ReadCloser, error)

	ParseConfig ldparse.Config
	R2Threshold float64

	// IndexKeyMaxSize bounds LDTable/SummaryTable keys. If 0, it is
	// discovered with an extra pass over the input before any table is
	// created.
	IndexKeyMaxSize uint32

	NSurrogatesBins Stratification
	MAFBins         Stratification

	// OnInvalidLine, if set, is called for every input row the parser
	// skips. If nil, skipped rows are logged at warn level instead.
	OnInvalidLine func(ldparse.InvalidLine)

	Logger *slog.Logger
}

// Result reports what a successful Build produced.
type Result struct {
	IndexVariantCount uint64
	PairCount         uint64
	InvalidLineCount  uint64
}

// Build runs the three-pass protocol and atomically installs the
// resulting dataset at opts.Dir.
func Build(opts Options) (Result, error) {
	logger := logging.Default(opts.Logger).With("component", "builder", "dir", opts.Dir)

	if _, err := os.Stat(opts.Dir); err == nil {
		return Result{}, fmt.Errorf("build %q: %w", opts.Dir, ErrDatasetExists)
	} else if !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("build %q: %w", opts.Dir, err)
	}

	scratchDir := filepath.Join(filepath.Dir(opts.Dir), "."+filepath.Base(opts.Dir)+"-"+uuid.NewString()+".build")
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("build %q: create scratch dir: %w", opts.Dir, err)
	}
	succeeded := false
	defer func() {
		if !succeeded {
			os.RemoveAll(scratchDir)
		}
	}()

	onInvalid := opts.OnInvalidLine
	var invalidCount uint64
	wrappedInvalid := func(l ldparse.InvalidLine) {
		invalidCount++
		if onInvalid != nil {
			onInvalid(l)
		} else {
			logger.Warn("skipping invalid input row", "line", l.LineNumber, "error", l.Err)
		}
	}

	indexKeyMaxSize := opts.IndexKeyMaxSize
	if indexKeyMaxSize == 0 {
		discovered, err := discoverMaxIndexKeySize(opts)
		if err != nil {
			return Result{}, fmt.Errorf("build %q: discovery pass: %w", opts.Dir, err)
		}
		indexKeyMaxSize = discovered
		logger.Debug("discovered max index key size", "max_key_size", indexKeyMaxSize)
	}

	logger.Info("pass 1: populating ld and summary tables")
	mafHist, nSurrogatesHist, pairCount, variantCount, err := pass1(opts, scratchDir, indexKeyMaxSize, wrappedInvalid, logger)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: pass 1: %w", opts.Dir, err)
	}

	nBins, err := opts.NSurrogatesBins.resolve(variantCount)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: n_surrogates stratification: %w", opts.Dir, err)
	}
	mafBins, err := opts.MAFBins.resolve(variantCount)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: maf stratification: %w", opts.Dir, err)
	}

	nSurrogatesStrata, err := nSurrogatesHist.Stratify(nBins)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: stratify n_surrogates: %w", opts.Dir, err)
	}
	mafStrata, err := mafHist.Stratify(mafBins)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: stratify maf: %w", opts.Dir, err)
	}

	logger.Info("pass 2: sizing strata", "n_surrogates_bins", nBins, "maf_bins", mafBins)
	strataTable, err := stratatable.Create(scratchDir, strataTableMaxKeySize, nSurrogatesStrata, mafStrata, logger)
	if err != nil {
		return Result{}, fmt.Errorf("build %q: open strata table: %w", opts.Dir, err)
	}
	defer strataTable.Close()

	sizes, err := pass2(opts, strataTable, func(ldparse.InvalidLine) {})
	if err != nil {
		return Result{}, fmt.Errorf("build %q: pass 2: %w", opts.Dir, err)
	}
	if err := strataTable.Reserve(sizes); err != nil {
		return Result{}, fmt.Errorf("build %q: reserve strata: %w", opts.Dir, err)
	}

	logger.Info("pass 3: placing variants in strata")
	if err := pass3(opts, strataTable, func(ldparse.InvalidLine) {}); err != nil {
		return Result{}, fmt.Errorf("build %q: pass 3: %w", opts.Dir, err)
	}

	if err := strataTable.Close(); err != nil {
		return Result{}, fmt.Errorf("build %q: close strata table: %w", opts.Dir, err)
	}

	if err := os.Rename(scratchDir, opts.Dir); err != nil {
		return Result{}, fmt.Errorf("build %q: install dataset: %w", opts.Dir, err)
	}
	succeeded = true

	logger.Info("build complete", "variants", variantCount, "pairs", pairCount, "invalid_lines", invalidCount)
	return Result{IndexVariantCount: variantCount, PairCount: pairCount, InvalidLineCount: invalidCount}, nil
}

func discoverMaxIndexKeySize(opts Options) (uint32, error) {
	in, err := opts.OpenInput()
	if err != nil {
		return 0, err
	}
	defer in.Close()

	var maxLen int
	err = ldparse.Iterate(in, opts.ParseConfig, opts.R2Threshold,
		func(ldparse.LDPair) {},
		func(s ldparse.IndexVariantSummary) {
			if len(s.VariantID) > maxLen {
				maxLen = len(s.VariantID)
			}
		},
		func(ldparse.InvalidLine) {},
	)
	if err != nil {
		return 0, err
	}
	if maxLen == 0 {
		maxLen = 1
	}
	return uint32(maxLen), nil
}

func pass1(opts Options, scratchDir string, indexKeyMaxSize uint32, onInvalid func(ldparse.InvalidLine), logger *slog.Logger) (mafHist *histogram.Histogram[float64], nSurrogatesHist *histogram.Histogram[uint64], pairCount, variantCount uint64, err error) {
	ldTable, err := ldtable.Create(scratchDir, indexKeyMaxSize, logger)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("open ld table: %w", err)
	}
	defer ldTable.Close()

	summaryTable, err := summarytable.Create(scratchDir, indexKeyMaxSize, logger)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("open summary table: %w", err)
	}
	defer summaryTable.Close()

	mafHist = histogram.New[float64]()
	nSurrogatesHist = histogram.New[uint64]()

	in, err := opts.OpenInput()
	if err != nil {
		return nil, nil, 0, 0, err
	}
	defer in.Close()

	iterErr := ldparse.Iterate(in, opts.ParseConfig, opts.R2Threshold,
		func(p ldparse.LDPair) {
			if err != nil {
				return
			}
			if e := ldTable.Append(p.IndexID, p.LDID); e != nil {
				err = fmt.Errorf("append ld pair %q -> %q: %w", p.IndexID, p.LDID, e)
				return
			}
			pairCount++
		},
		func(s ldparse.IndexVariantSummary) {
			if err != nil {
				return
			}
			if e := summaryTable.Append(summarytable.Summary{VariantID: s.VariantID, MAF: s.MAF, NSurrogates: s.NSurrogates}); e != nil {
				err = fmt.Errorf("append summary %q: %w", s.VariantID, e)
				return
			}
			mafHist.IncreaseCount1(s.MAF)
			nSurrogatesHist.IncreaseCount1(s.NSurrogates)
			variantCount++
		},
		onInvalid,
	)
	if iterErr != nil {
		return nil, nil, 0, 0, iterErr
	}
	if err != nil {
		return nil, nil, 0, 0, err
	}

	return mafHist, nSurrogatesHist, pairCount, variantCount, nil
}

func pass2(opts Options, strataTable *stratatable.Table, onInvalid func(ldparse.InvalidLine)) (*histogram.Histogram[string], error) {
	sizes := histogram.New[string]()
	var callbackErr error

	in, err := opts.OpenInput()
	if err != nil {
		return nil, err
	}
	defer in.Close()

	iterErr := ldparse.Iterate(in, opts.ParseConfig, opts.R2Threshold,
		func(ldparse.LDPair) {},
		func(s ldparse.IndexVariantSummary) {
			if callbackErr != nil {
				return
			}
			stratum, e := strataTable.GetStratum(s.MAF, s.NSurrogates)
			if e != nil {
				callbackErr = fmt.Errorf("get stratum for %q: %w", s.VariantID, e)
				return
			}
			sizes.IncreaseCount(stratum, uint64(len(s.VariantID)+1))
		},
		onInvalid,
	)
	if iterErr != nil {
		return nil, iterErr
	}
	if callbackErr != nil {
		return nil, callbackErr
	}
	return sizes, nil
}

func pass3(opts Options, strataTable *stratatable.Table, onInvalid func(ldparse.InvalidLine)) error {
	var callbackErr error

	in, err := opts.OpenInput()
	if err != nil {
		return err
	}
	defer in.Close()

	iterErr := ldparse.Iterate(in, opts.ParseConfig, opts.R2Threshold,
		func(ldparse.LDPair) {},
		func(s ldparse.IndexVariantSummary) {
			if callbackErr != nil {
				return
			}
			if e := strataTable.Append(s.VariantID, s.MAF, s.NSurrogates); e != nil {
				callbackErr = fmt.Errorf("place %q in stratum: %w", s.VariantID, e)
			}
		},
		onInvalid,
	)
	if iterErr != nil {
		return iterErr
	}
	return callbackErr
}
