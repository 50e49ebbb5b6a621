// Package summarytable is a facade over a VDH mapping an index variant id
// to its summary statistics: minor allele frequency and number of LD
// surrogates.
package summarytable

import (
	"fmt"
	"log/slog"
	"strconv"

	"ldlookup/internal/vdh"
)

const vdhName = "summary"

// ErrCorrupt is returned by Lookup when a stored value cannot be parsed
// back into a Summary.
var ErrCorrupt = vdh.ErrCorrupt

// Summary is one index variant's statistics.
type Summary struct {
	VariantID   string
	MAF         float64
	NSurrogates uint64
}

// Table maps a variant id to its Summary.
type Table struct {
	vdh *vdh.VDH
}

// Create makes a new, empty, writable Table in dir, sized for keys up to
// maxKeySize bytes.
func Create(dir string, maxKeySize uint32, logger *slog.Logger) (*Table, error) {
	v, err := vdh.Create(dir, vdhName, maxKeySize, logger)
	if err != nil {
		return nil, err
	}
	return &Table{vdh: v}, nil
}

// Open opens an existing Table in dir, read-only.
func Open(dir string, logger *slog.Logger) (*Table, error) {
	v, err := vdh.Open(dir, vdhName, logger)
	if err != nil {
		return nil, err
	}
	return &Table{vdh: v}, nil
}

// formatMAF renders a MAF value in the locale-independent dotted decimal
// form used consistently across the dataset, with enough precision to
// round-trip the original float64.
func formatMAF(maf float64) string {
	return strconv.FormatFloat(maf, 'f', -1, 64)
}

func formatCount(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// Append records s under s.VariantID.
func (t *Table) Append(s Summary) error {
	if err := t.vdh.Append(s.VariantID, formatMAF(s.MAF)); err != nil {
		return err
	}
	return t.vdh.Append(s.VariantID, formatCount(s.NSurrogates))
}

// Lookup returns the MAF and surrogate count stored for variantID.
func (t *Table) Lookup(variantID string) (maf float64, nSurrogates uint64, err error) {
	values, err := t.vdh.Lookup(variantID)
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("summary %q: expected 2 stored values, found %d: %w", variantID, len(values), ErrCorrupt)
	}

	maf, err = strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("summary %q: parse maf %q: %w: %w", variantID, values[0], ErrCorrupt, err)
	}
	n, err := strconv.ParseUint(values[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("summary %q: parse n_surrogates %q: %w: %w", variantID, values[1], ErrCorrupt, err)
	}
	return maf, n, nil
}

// Close releases the table's backing files.
func (t *Table) Close() error {
	return t.vdh.Close()
}
