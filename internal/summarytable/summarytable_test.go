package summarytable

import (
	"errors"
	"testing"
)

func TestAppendAndLookupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Create(dir, 16, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := tbl.Append(Summary{VariantID: "rs1", MAF: 0.10, NSurrogates: 2}); err != nil {
		t.Fatalf("Append(rs1): %v", err)
	}
	if err := tbl.Append(Summary{VariantID: "rs5", MAF: 0.25, NSurrogates: 1}); err != nil {
		t.Fatalf("Append(rs5): %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	maf, n, err := reopened.Lookup("rs1")
	if err != nil {
		t.Fatalf("Lookup(rs1): %v", err)
	}
	if maf != 0.10 || n != 2 {
		t.Errorf("Lookup(rs1) = (%v, %v), want (0.10, 2)", maf, n)
	}

	maf, n, err = reopened.Lookup("rs5")
	if err != nil {
		t.Fatalf("Lookup(rs5): %v", err)
	}
	if maf != 0.25 || n != 1 {
		t.Errorf("Lookup(rs5) = (%v, %v), want (0.25, 1)", maf, n)
	}
}

func TestLookupMissingKey(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Create(dir, 16, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer tbl.Close()

	if _, _, err := tbl.Lookup("nope"); err == nil {
		t.Errorf("Lookup(nope) = nil error, want an error")
	}
}

func TestLookupCorruptTooFewValues(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Create(dir, 16, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer tbl.Close()

	// Bypass the facade to write only one value under a key, simulating
	// a truncated or malformed record.
	if err := tbl.vdh.Append("rs9", "0.3"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, _, err := tbl.Lookup("rs9"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Lookup(rs9) error = %v, want ErrCorrupt", err)
	}
}
