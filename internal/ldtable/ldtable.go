// Package ldtable is a thin facade over a VDH that records, for each
// index variant, the ordered sequence of variants found to be in LD with
// it.
package ldtable

import (
	"log/slog"

	"ldlookup/internal/vdh"
)

const vdhName = "ld"

// Table maps an index variant id to the surrogate variant ids discovered
// in LD with it. The builder always sends every surrogate of a given
// index variant consecutively, so Table never reserves space: every
// surrogate of a variant rides the VDH's end-of-file append path.
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

// Append records surrogateID as being in LD with indexID.
func (t *Table) Append(indexID, surrogateID string) error {
	return t.vdh.Append(indexID, surrogateID)
}

// Lookup returns the surrogate ids in LD with indexID, in the order they
// were appended.
func (t *Table) Lookup(indexID string) ([]string, error) {
	return t.vdh.Lookup(indexID)
}

// Close releases the table's backing files.
func (t *Table) Close() error {
	return t.vdh.Close()
}
