// Package stratatable implements the two-axis stratification index: it
// buckets index variants by minor allele frequency and number of LD
// surrogates into a composite stratum, and maps each stratum to the
// variant ids that fall into it.
package stratatable

import (
	"fmt"
	"log/slog"
	"strconv"

	"ldlookup/internal/histogram"
	"ldlookup/internal/vdh"
)

const vdhName = "strata"

// Meta-keys under which the stratification cutpoints are persisted. Their
// underscore-bracketed form guarantees they sort outside any composite
// stratum key (those are "<digits> <digits-or-dotted-decimal>"), so they
// can never collide with a real stratum.
const (
	nSurrogatesMetaKey = "__N_SURROGATES_KEY__"
	mafMetaKey         = "__MAF_KEY__"
)

// Table maps a composite stratum key to the variant ids placed in it.
type Table struct {
	vdh               *vdh.VDH
	nSurrogatesStrata *histogram.Histogram[uint64]
	mafStrata         *histogram.Histogram[float64]
}

// Create makes a new, empty, writable Table seeded with already-stratified
// histograms for each axis. The cutpoints are persisted under reserved
// meta-keys so Open can restore them later.
func Create(dir string, maxKeySize uint32, nSurrogatesStrata *histogram.Histogram[uint64], mafStrata *histogram.Histogram[float64], logger *slog.Logger) (*Table, error) {
	v, err := vdh.Create(dir, vdhName, maxKeySize, logger)
	if err != nil {
		return nil, err
	}

	for _, s := range nSurrogatesStrata.Strata() {
		if err := v.Append(nSurrogatesMetaKey, strconv.FormatUint(s, 10)); err != nil {
			v.Close()
			return nil, fmt.Errorf("persist n_surrogates strata: %w", err)
		}
	}
	for _, s := range mafStrata.Strata() {
		if err := v.Append(mafMetaKey, formatMAF(s)); err != nil {
			v.Close()
			return nil, fmt.Errorf("persist maf strata: %w", err)
		}
	}

	return &Table{vdh: v, nSurrogatesStrata: nSurrogatesStrata, mafStrata: mafStrata}, nil
}

// Open opens an existing Table in dir, read-only, restoring both axes'
// cutpoints from the meta-keys.
func Open(dir string, logger *slog.Logger) (*Table, error) {
	v, err := vdh.Open(dir, vdhName, logger)
	if err != nil {
		return nil, err
	}

	nStrings, err := v.Lookup(nSurrogatesMetaKey)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("restore n_surrogates strata: %w", err)
	}
	nSurrogatesStrata := histogram.New[uint64]()
	for _, s := range nStrings {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			v.Close()
			return nil, fmt.Errorf("restore n_surrogates strata: parse %q: %w: %w", s, vdh.ErrCorrupt, err)
		}
		nSurrogatesStrata.IncreaseCount1(n)
	}

	mafStrings, err := v.Lookup(mafMetaKey)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("restore maf strata: %w", err)
	}
	mafStrata := histogram.New[float64]()
	for _, s := range mafStrings {
		m, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v.Close()
			return nil, fmt.Errorf("restore maf strata: parse %q: %w: %w", s, vdh.ErrCorrupt, err)
		}
		mafStrata.IncreaseCount1(m)
	}

	return &Table{vdh: v, nSurrogatesStrata: nSurrogatesStrata, mafStrata: mafStrata}, nil
}

// NSurrogatesStrata returns the n_surrogates axis cutpoints, ascending.
func (t *Table) NSurrogatesStrata() []uint64 {
	return t.nSurrogatesStrata.Strata()
}

// MAFStrata returns the maf axis cutpoints, ascending.
func (t *Table) MAFStrata() []float64 {
	return t.mafStrata.Strata()
}

func formatMAF(maf float64) string {
	return strconv.FormatFloat(maf, 'f', -1, 64)
}

// GetStratum returns the composite stratum key that (maf, nSurrogates)
// falls into. Fails with histogram.ErrOutOfRange if either value is below
// its axis's minimum cutpoint.
func (t *Table) GetStratum(maf float64, nSurrogates uint64) (string, error) {
	nStratum, err := t.nSurrogatesStrata.GetStratum(nSurrogates)
	if err != nil {
		return "", err
	}
	mStratum, err := t.mafStrata.GetStratum(maf)
	if err != nil {
		return "", err
	}
	return compositeKey(nStratum, mStratum), nil
}

func compositeKey(nSurrogatesStratum uint64, mafStratum float64) string {
	return fmt.Sprintf("%d %s", nSurrogatesStratum, formatMAF(mafStratum))
}

// Reserve allocates, for each stratum key in sizes, the byte budget
// sizes.GetCount(key) against the backing VDH.
func (t *Table) Reserve(sizes *histogram.Histogram[string]) error {
	for _, key := range sizes.Strata() {
		n, err := sizes.GetCount(key)
		if err != nil {
			return err
		}
		if err := t.vdh.Reserve(key, n); err != nil {
			return fmt.Errorf("reserve stratum %q: %w", key, err)
		}
	}
	return nil
}

// Append places variantID into the stratum (maf, nSurrogates) falls into.
func (t *Table) Append(variantID string, maf float64, nSurrogates uint64) error {
	stratum, err := t.GetStratum(maf, nSurrogates)
	if err != nil {
		return err
	}
	return t.vdh.Append(stratum, variantID)
}

// Lookup returns the variant ids placed in the stratum (maf, nSurrogates)
// falls into.
func (t *Table) Lookup(maf float64, nSurrogates uint64) ([]string, error) {
	stratum, err := t.GetStratum(maf, nSurrogates)
	if err != nil {
		return nil, err
	}
	return t.vdh.Lookup(stratum)
}

// LookupSample draws k variant ids, uniformly with replacement, from the
// stratum (maf, nSurrogates) falls into.
func (t *Table) LookupSample(maf float64, nSurrogates uint64, k int) ([]string, error) {
	stratum, err := t.GetStratum(maf, nSurrogates)
	if err != nil {
		return nil, err
	}
	return t.vdh.LookupSample(stratum, k)
}

// Close releases the table's backing files.
func (t *Table) Close() error {
	return t.vdh.Close()
}
