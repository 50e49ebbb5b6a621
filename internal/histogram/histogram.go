// Package histogram accumulates counts keyed by an ordered type and derives
// equi-count stratification cutpoints from the resulting distribution.
//
// A Histogram[K] is used two ways in ldlookup: first as a running tally of
// how many index variants fall at each observed MAF or surrogate count,
// then — after a call to Stratify — as the set of cutpoints that define
// the lower bound of each stratum on that axis.
package histogram

import (
	"cmp"
	"errors"
	"slices"
)

var (
	// ErrMissingKey is returned by GetCount for a key that was never
	// recorded.
	ErrMissingKey = errors.New("histogram: missing key")

	// ErrOutOfRange is returned by GetStratum when the queried value is
	// below every stored key.
	ErrOutOfRange = errors.New("histogram: value below minimum key")

	// ErrEmpty is returned by Stratify when there is nothing to bin.
	ErrEmpty = errors.New("histogram: nothing to stratify")
)

// Histogram maps keys of an ordered type K to non-negative counts.
//
// The zero value is an empty histogram, ready to use.
type Histogram[K cmp.Ordered] struct {
	counts map[K]uint64
}

// New returns an empty Histogram[K].
func New[K cmp.Ordered]() *Histogram[K] {
	return &Histogram[K]{counts: make(map[K]uint64)}
}

// IncreaseCount adds n to the count at key, creating the entry if absent.
// n defaults to 1 when omitted by calling IncreaseCount1.
func (h *Histogram[K]) IncreaseCount(key K, n uint64) {
	if h.counts == nil {
		h.counts = make(map[K]uint64)
	}
	h.counts[key] += n
}

// IncreaseCount1 is IncreaseCount(key, 1), the common case of observing one
// more instance of key.
func (h *Histogram[K]) IncreaseCount1(key K) {
	h.IncreaseCount(key, 1)
}

// TotalCount returns the sum of all counts in the histogram.
func (h *Histogram[K]) TotalCount() uint64 {
	var total uint64
	for _, c := range h.counts {
		total += c
	}
	return total
}

// Strata returns the histogram's keys in ascending order.
func (h *Histogram[K]) Strata() []K {
	keys := make([]K, 0, len(h.counts))
	for k := range h.counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetCount returns the count stored at key, or ErrMissingKey if key was
// never recorded.
func (h *Histogram[K]) GetCount(key K) (uint64, error) {
	c, ok := h.counts[key]
	if !ok {
		return 0, ErrMissingKey
	}
	return c, nil
}

// GetStratum returns the greatest stored key less than or equal to key,
// i.e. the stratum that key falls into. Returns ErrOutOfRange if key is
// below the minimum stored key (including when the histogram is empty).
func (h *Histogram[K]) GetStratum(key K) (K, error) {
	var zero K
	strata := h.Strata()
	// strata is ascending; find the last entry <= key.
	idx, found := slices.BinarySearch(strata, key)
	if found {
		return strata[idx], nil
	}
	// idx is the insertion point: the first key greater than key.
	if idx == 0 {
		return zero, ErrOutOfRange
	}
	return strata[idx-1], nil
}

// Stratify returns a new histogram whose keys are equi-count cutpoints
// over the same underlying distribution, split into n_bins bins.
//
// It traverses the receiver's keys in descending order, accumulating
// counts into a running bucket, and emits a cutpoint (keyed by the
// current key, the smallest one in that bucket) whenever the running count
// reaches total_count/n_bins. Any residual count left after the last full
// bucket is folded into the smallest-key cutpoint.
//
// Traversing in descending order and flushing guarantees that the key
// recorded for each bin is that bin's lower bound, which is exactly what
// GetStratum's "greatest key <= value" lookup requires.
//
// Fails with ErrEmpty if nBins is 0 or the histogram has no observations.
func (h *Histogram[K]) Stratify(nBins uint64) (*Histogram[K], error) {
	total := h.TotalCount()
	if nBins == 0 || total == 0 {
		return nil, ErrEmpty
	}

	strata := h.Strata()
	binSize := total / nBins
	if binSize == 0 {
		binSize = 1
	}

	result := New[K]()
	var running uint64
	for i := len(strata) - 1; i >= 0; i-- {
		running += h.counts[strata[i]]
		if running >= binSize {
			result.IncreaseCount(strata[i], running)
			running = 0
		}
	}

	if running != 0 {
		result.IncreaseCount(strata[0], running)
	}

	return result, nil
}
