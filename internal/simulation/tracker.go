package simulation

import (
	"maps"
	"slices"
)

// CountTracker keeps the running total of every formula reported through
// chem.Tracker.
type CountTracker struct {
	counts map[string]int64
}

func NewCountTracker() *CountTracker {
	return &CountTracker{counts: make(map[string]int64)}
}

func (t *CountTracker) Update(formula string, delta int64) {
	t.counts[formula] += delta
}

// Count returns the total for formula; unknown formulas are zero.
func (t *CountTracker) Count(formula string) int64 {
	return t.counts[formula]
}

// Snapshot returns a copy of all totals.
func (t *CountTracker) Snapshot() map[string]int64 {
	return maps.Clone(t.counts)
}

// Formulas returns every formula ever reported, sorted.
func (t *CountTracker) Formulas() []string {
	return slices.Sorted(maps.Keys(t.counts))
}
