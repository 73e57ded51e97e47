package chem

import (
	"testing"

	"github.com/daniacca/chemsim/internal/schedule"
)

// fakeQueue records scheduled entities without running them.
type fakeQueue struct {
	items []schedule.Steppable
}

func (q *fakeQueue) Insert(st schedule.Steppable) { q.items = append(q.items, st) }

// scriptedGaussian replays a fixed list of draws.
type scriptedGaussian struct {
	draws []float64
	next  int
}

func (g *scriptedGaussian) NormFloat64() float64 {
	if g.next >= len(g.draws) {
		return 99 // far outside one standard deviation: no movement
	}
	v := g.draws[g.next]
	g.next++
	return v
}

// recordingTracker keeps the net delta per formula.
type recordingTracker struct {
	totals map[string]int64
	calls  int
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{totals: make(map[string]int64)}
}

func (r *recordingTracker) Update(formula string, delta int64) {
	r.totals[formula] += delta
	r.calls++
}

// allKinetics converts everything available; noKinetics never fires.
var allKinetics = KineticsFunc(func(req KineticsRequest) int64 { return req.Available })

var noKinetics = KineticsFunc(func(req KineticsRequest) int64 { return 0 })

func mustReaction(t *testing.T, reactants, products []string, rate float64) ReactionDescription {
	t.Helper()
	r, err := NewReaction(reactants, products, rate)
	if err != nil {
		t.Fatalf("NewReaction(%v, %v) failed: %v", reactants, products, err)
	}
	return r
}

func mustRegistry(t *testing.T, reactions ...ReactionDescription) *Registry {
	t.Helper()
	reg := NewRegistry(nil)
	if err := reg.Load(reactions); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return reg
}

type testEnv struct {
	env     *Environment
	queue   *fakeQueue
	tracker *recordingTracker
	gauss   *scriptedGaussian
}

func newTestEnv(t *testing.T, reg *Registry, kinetics Kinetics, opts Options) *testEnv {
	t.Helper()
	if opts.GridSize == 0 {
		opts.GridSize = 3
	}
	if opts.CellVolume == 0 {
		opts.CellVolume = 1
	}
	te := &testEnv{
		queue:   &fakeQueue{},
		tracker: newRecordingTracker(),
		gauss:   &scriptedGaussian{},
	}
	env, err := NewEnvironment(EnvironmentConfig{
		Registry: reg,
		Queue:    te.queue,
		Tracker:  te.tracker,
		Kinetics: kinetics,
		RNG:      NewRNG(1),
		Gaussian: te.gauss,
		Options:  opts,
	})
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}
	te.env = env
	return te
}

func (te *testEnv) cell(x, y, z int) *Cell {
	return te.env.Reactor().Cell(Location{X: x, Y: y, Z: z})
}

func (te *testEnv) id(formula string) SpeciesID {
	return te.env.catalog().Intern(formula)
}
