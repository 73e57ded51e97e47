package chem

// Tracker receives every change to a species population. It is a one-way
// sink; the engine never reads back from it.
type Tracker interface {
	Update(formula string, delta int64)
}

// TrackerFunc adapts a function to the Tracker interface.
type TrackerFunc func(formula string, delta int64)

func (f TrackerFunc) Update(formula string, delta int64) { f(formula, delta) }

type noOpTracker struct{}

func (noOpTracker) Update(string, int64) {}
