package vdh

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppendAndLookupOrder(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 64, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	for _, val := range []string{"v1", "v2", "v3"} {
		if err := v.Append("k", val); err != nil {
			t.Fatalf("Append(%q): %v", val, err)
		}
	}
	if err := v.Append("other", "interleaved"); err != nil {
		t.Fatalf("Append(other): %v", err)
	}
	if err := v.Append("k2", "more"); err != nil {
		t.Fatalf("Append(k2): %v", err)
	}

	got, err := v.Lookup("k")
	if err != nil {
		t.Fatalf("Lookup(k): %v", err)
	}
	want := []string{"v1", "v2", "v3"}
	if len(got) != len(want) {
		t.Fatalf("Lookup(k) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lookup(k)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReserveBoundary(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if err := v.Reserve("a", 10); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := v.Append("a", "xy"); err != nil {
		t.Fatalf("Append(xy): %v", err)
	}
	if err := v.Append("a", "zzz"); err != nil {
		t.Fatalf("Append(zzz): %v", err)
	}

	got, err := v.Lookup("a")
	if err != nil {
		t.Fatalf("Lookup(a): %v", err)
	}
	want := []string{"xy", "zzz"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Lookup(a) = %v, want %v", got, want)
	}

	if err := v.Append("a", "www"); !errors.Is(err, ErrOutOfReserve) {
		t.Errorf("Append(www) error = %v, want ErrOutOfReserve", err)
	}
}

func TestInterleavedAppendWithoutReservation(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if err := v.Append("p", "1"); err != nil {
		t.Fatalf("Append(p,1): %v", err)
	}
	if err := v.Append("q", "2"); err != nil {
		t.Fatalf("Append(q,2): %v", err)
	}
	if err := v.Append("p", "3"); !errors.Is(err, ErrOutOfReserve) {
		t.Errorf("Append(p,3) error = %v, want ErrOutOfReserve", err)
	}
}

func TestIsMember(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if v.IsMember("x") {
		t.Errorf("IsMember(x) = true before any write")
	}
	if err := v.Append("x", "1"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !v.IsMember("x") {
		t.Errorf("IsMember(x) = false after Append")
	}
	if v.IsMember("y") {
		t.Errorf("IsMember(y) = true, was never touched")
	}
	if err := v.Reserve("y", 4); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !v.IsMember("y") {
		t.Errorf("IsMember(y) = false after Reserve")
	}
}

func TestLookupMissingKey(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if _, err := v.Lookup("nope"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Lookup(nope) error = %v, want ErrMissingKey", err)
	}
}

func TestLookupSampleEmptyKey(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if err := v.Reserve("k", 4); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := v.LookupSample("k", 1); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("LookupSample(k,1) error = %v, want ErrEmptyKey", err)
	}
	if got, err := v.LookupSample("k", 0); err != nil || len(got) != 0 {
		t.Errorf("LookupSample(k,0) = %v, %v, want empty slice, nil error", got, err)
	}
}

func TestLookupSampleDrawsFromValues(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	values := []string{"a", "b", "c"}
	for _, val := range values {
		if err := v.Append("k", val); err != nil {
			t.Fatalf("Append(%q): %v", val, err)
		}
	}

	samples, err := v.LookupSample("k", 50)
	if err != nil {
		t.Fatalf("LookupSample: %v", err)
	}
	if len(samples) != 50 {
		t.Fatalf("LookupSample returned %d samples, want 50", len(samples))
	}
	valid := map[string]bool{"a": true, "b": true, "c": true}
	for _, s := range samples {
		if !valid[s] {
			t.Errorf("sample %q not in lookup(k)", s)
		}
	}
}

func TestLookupSampleUniformity(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	const nValues = 100
	for i := 0; i < nValues; i++ {
		if err := v.Append("k", fmt.Sprintf("v%03d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	const draws = 10000
	counts := make(map[string]int, nValues)
	for i := 0; i < draws; i++ {
		s, err := v.LookupSample("k", 1)
		if err != nil {
			t.Fatalf("LookupSample: %v", err)
		}
		counts[s[0]]++
	}

	// Expected 100 draws per value. Bounds are far looser than Chernoff
	// requires at this sample size, so the test cannot flake.
	for val, n := range counts {
		if n < 30 || n > 250 {
			t.Errorf("value %q drawn %d times, want roughly %d", val, n, draws/nValues)
		}
	}
	if len(counts) < nValues/2 {
		t.Errorf("only %d distinct values drawn across %d samples, want most of %d", len(counts), draws, nValues)
	}
}

func TestKeyTooLong(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 2, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if err := v.Append("toolong", "v"); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Append error = %v, want ErrKeyTooLong", err)
	}
	if err := v.Reserve("toolong", 4); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Reserve error = %v, want ErrKeyTooLong", err)
	}
}

func TestDuplicateReserve(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer v.Close()

	if err := v.Reserve("k", 4); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := v.Reserve("k", 4); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Reserve again error = %v, want ErrDuplicateKey", err)
	}
}

func TestCreateAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v.Close()

	if _, err := Create(dir, "ld", 8, nil); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Create again error = %v, want ErrAlreadyExists", err)
	}
}

func TestOpenNotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open error = %v, want ErrNotFound", err)
	}
}

func TestCloseThenReopenReadOnly(t *testing.T) {
	dir := t.TempDir()
	v, err := Create(dir, "ld", 16, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := v.Append("rs1", "rs2"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := v.Append("rs1", "rs3"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(dir, "ld", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.MaxKeySize() != 16 {
		t.Errorf("MaxKeySize() = %d, want 16", r.MaxKeySize())
	}

	got, err := r.Lookup("rs1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 2 || got[0] != "rs2" || got[1] != "rs3" {
		t.Errorf("Lookup(rs1) = %v, want [rs2 rs3]", got)
	}

	if err := r.Append("rs1", "rs4"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Append on read-only VDH error = %v, want ErrReadOnly", err)
	}
	if err := r.Reserve("rs9", 4); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Reserve on read-only VDH error = %v, want ErrReadOnly", err)
	}
}
