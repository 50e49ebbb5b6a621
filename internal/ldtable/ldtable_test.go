package ldtable

import "testing"

func TestAppendAndLookup(t *testing.T) {
	dir := t.TempDir()
	tbl, err := Create(dir, 16, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := tbl.Append("rs1", "rs2"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tbl.Append("rs1", "rs3"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tbl.Append("rs5", "rs6"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Lookup("rs1")
	if err != nil {
		t.Fatalf("Lookup(rs1): %v", err)
	}
	if len(got) != 2 || got[0] != "rs2" || got[1] != "rs3" {
		t.Errorf("Lookup(rs1) = %v, want [rs2 rs3]", got)
	}

	got, err = reopened.Lookup("rs5")
	if err != nil {
		t.Fatalf("Lookup(rs5): %v", err)
	}
	if len(got) != 1 || got[0] != "rs6" {
		t.Errorf("Lookup(rs5) = %v, want [rs6]", got)
	}
}
