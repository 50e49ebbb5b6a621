package histogram

import (
	"errors"
	"testing"
)

func TestIncreaseAndGetCount(t *testing.T) {
	h := New[int]()
	h.IncreaseCount1(5)
	h.IncreaseCount(5, 2)
	h.IncreaseCount1(8)

	count, err := h.GetCount(5)
	if err != nil {
		t.Fatalf("GetCount(5): %v", err)
	}
	if count != 3 {
		t.Errorf("GetCount(5) = %d, want 3", count)
	}

	if _, err := h.GetCount(99); !errors.Is(err, ErrMissingKey) {
		t.Errorf("GetCount(99) error = %v, want ErrMissingKey", err)
	}
}

func TestTotalCount(t *testing.T) {
	h := New[int]()
	h.IncreaseCount1(1)
	h.IncreaseCount1(2)
	h.IncreaseCount(2, 2)
	if got := h.TotalCount(); got != 4 {
		t.Errorf("TotalCount() = %d, want 4", got)
	}
}

func TestStrataAscending(t *testing.T) {
	h := New[int]()
	for _, k := range []int{5, 1, 8, 3} {
		h.IncreaseCount1(k)
	}
	got := h.Strata()
	want := []int{1, 3, 5, 8}
	if len(got) != len(want) {
		t.Fatalf("Strata() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Strata()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGetStratum(t *testing.T) {
	h := New[int]()
	for _, k := range []int{1, 3, 5, 8} {
		h.IncreaseCount1(k)
	}

	cases := []struct {
		query int
		want  int
	}{
		{1, 1},
		{2, 1},
		{4, 3},
		{5, 5},
		{100, 8},
	}
	for _, c := range cases {
		got, err := h.GetStratum(c.query)
		if err != nil {
			t.Fatalf("GetStratum(%d): %v", c.query, err)
		}
		if got != c.want {
			t.Errorf("GetStratum(%d) = %d, want %d", c.query, got, c.want)
		}
	}

	if _, err := h.GetStratum(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("GetStratum(0) error = %v, want ErrOutOfRange", err)
	}
}

func TestGetStratumEmptyHistogram(t *testing.T) {
	h := New[int]()
	if _, err := h.GetStratum(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("GetStratum on empty histogram error = %v, want ErrOutOfRange", err)
	}
}

func TestStratifyTwoBins(t *testing.T) {
	// Data 1,2,2,3,5,8 represented as {1:1, 2:2, 3:1, 5:1, 8:1}, n_bins=2.
	h := New[int]()
	h.IncreaseCount(1, 1)
	h.IncreaseCount(2, 2)
	h.IncreaseCount(3, 1)
	h.IncreaseCount(5, 1)
	h.IncreaseCount(8, 1)

	strat, err := h.Stratify(2)
	if err != nil {
		t.Fatalf("Stratify(2): %v", err)
	}

	if strat.TotalCount() != h.TotalCount() {
		t.Errorf("Stratify total = %d, want %d", strat.TotalCount(), h.TotalCount())
	}

	got, err := strat.GetStratum(4)
	if err != nil {
		t.Fatalf("GetStratum(4) on stratified histogram: %v", err)
	}
	if got > 4 {
		t.Errorf("GetStratum(4) = %d, want a cutpoint <= 4", got)
	}
}

func TestStratifyPreservesTotalAndKeysDefined(t *testing.T) {
	h := New[int]()
	for _, k := range []int{0, 2, 4, 6, 9, 12, 20} {
		h.IncreaseCount(k, uint64(k+1))
	}

	for _, n := range []uint64{1, 2, 3, 5} {
		strat, err := h.Stratify(n)
		if err != nil {
			t.Fatalf("Stratify(%d): %v", n, err)
		}
		if strat.TotalCount() != h.TotalCount() {
			t.Errorf("Stratify(%d) total = %d, want %d", n, strat.TotalCount(), h.TotalCount())
		}
		for _, k := range h.Strata() {
			got, err := strat.GetStratum(k)
			if err != nil {
				t.Fatalf("Stratify(%d): GetStratum(%d): %v", n, k, err)
			}
			if got > k {
				t.Errorf("Stratify(%d): GetStratum(%d) = %d, want <= %d", n, k, got, k)
			}
		}
	}
}

func TestStratifyFailsOnEmptyOrZeroBins(t *testing.T) {
	h := New[int]()
	if _, err := h.Stratify(2); !errors.Is(err, ErrEmpty) {
		t.Errorf("Stratify on empty histogram error = %v, want ErrEmpty", err)
	}

	h.IncreaseCount1(1)
	if _, err := h.Stratify(0); !errors.Is(err, ErrEmpty) {
		t.Errorf("Stratify(0) error = %v, want ErrEmpty", err)
	}
}

func TestStratifyFloatKeys(t *testing.T) {
	h := New[float64]()
	for _, k := range []float64{0.01, 0.05, 0.1, 0.25, 0.4, 0.5} {
		h.IncreaseCount1(k)
	}
	strat, err := h.Stratify(3)
	if err != nil {
		t.Fatalf("Stratify(3): %v", err)
	}
	if strat.TotalCount() != 6 {
		t.Errorf("Stratify(3) total = %d, want 6", strat.TotalCount())
	}
}
