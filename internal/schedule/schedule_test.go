package schedule

import (
	"errors"
	"testing"
)

// recordingSim counts callbacks and optionally reacts to a given step.
type recordingSim struct {
	steps     []int
	finished  int
	completed bool
	onStep    func(step int)
	totalSeen int
}

func (r *recordingSim) Step(step, total int) {
	r.steps = append(r.steps, step)
	r.totalSeen = total
	if r.onStep != nil {
		r.onStep(step)
	}
}

func (r *recordingSim) Finish(completed bool) {
	r.finished++
	r.completed = completed
}

// counter is a steppable that counts how often it ran.
type counter struct {
	Lifecycle
	runs   int
	action func(c *counter, step int)
}

func (c *counter) Step(step int) {
	c.runs++
	if c.action != nil {
		c.action(c, step)
	}
}

func TestScheduler_EscapementCadence(t *testing.T) {
	s := New()
	a, b := &counter{}, &counter{}
	s.Insert(a)
	s.Insert(b)

	sim := &recordingSim{}
	if err := s.Start(sim, 5); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if len(sim.steps) != 5 {
		t.Fatalf("Expected 5 step callbacks, got %d", len(sim.steps))
	}
	for i, step := range sim.steps {
		if step != i+1 {
			t.Errorf("Expected callback %d to report step %d, got %d", i, i+1, step)
		}
	}
	if sim.totalSeen != 5 {
		t.Errorf("Expected total 5, got %d", sim.totalSeen)
	}
	if a.runs != 5 || b.runs != 5 {
		t.Errorf("Expected each entity to run 5 times, got %d and %d", a.runs, b.runs)
	}
	if sim.finished != 1 {
		t.Errorf("Expected Finish exactly once, got %d", sim.finished)
	}
	if !sim.completed {
		t.Error("Expected completed run")
	}
	if s.State() != StateStopped {
		t.Errorf("Expected state stopped, got %s", s.State())
	}
	if s.Count() != 0 {
		t.Errorf("Expected empty queue after run, got %d", s.Count())
	}
}

func TestScheduler_EarlyStopEndsAtStepBoundary(t *testing.T) {
	s := New()
	var stopper, after *counter
	stopper = &counter{action: func(c *counter, step int) {
		// step is the number of completed steps, so this is step 3
		if step == 2 {
			s.Stop()
		}
	}}
	after = &counter{}
	s.Insert(stopper)
	s.Insert(after)

	sim := &recordingSim{}
	if err := s.Start(sim, 100); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if len(sim.steps) != 3 {
		t.Fatalf("Expected 3 step callbacks, got %d", len(sim.steps))
	}
	// the entity behind the stopper still finishes step 3
	if after.runs != 3 {
		t.Errorf("Expected trailing entity to run 3 times, got %d", after.runs)
	}
	if sim.completed {
		t.Error("Expected early stop to report an incomplete run")
	}
	if sim.finished != 1 {
		t.Errorf("Expected Finish exactly once, got %d", sim.finished)
	}
}

func TestScheduler_StopFromStepCallback(t *testing.T) {
	s := New()
	c := &counter{}
	s.Insert(c)

	sim := &recordingSim{}
	sim.onStep = func(step int) {
		if step == 4 {
			s.Stop()
		}
	}
	if err := s.Start(sim, 10); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if len(sim.steps) != 4 {
		t.Errorf("Expected 4 callbacks, got %d", len(sim.steps))
	}
	if c.runs != 4 {
		t.Errorf("Expected entity to run 4 times, got %d", c.runs)
	}
}

func TestScheduler_HaltDiscardsRestOfStep(t *testing.T) {
	s := New()
	halter := &counter{action: func(c *counter, step int) {
		if step == 1 {
			s.Halt()
		}
	}}
	after := &counter{}
	s.Insert(halter)
	s.Insert(after)

	sim := &recordingSim{}
	if err := s.Start(sim, 10); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if halter.runs != 2 {
		t.Errorf("Expected halting entity to run 2 times, got %d", halter.runs)
	}
	if after.runs != 1 {
		t.Errorf("Expected trailing entity to miss the halted step, got %d runs", after.runs)
	}
	if len(sim.steps) != 1 {
		t.Errorf("Expected 1 step callback, got %d", len(sim.steps))
	}
	if sim.finished != 1 {
		t.Errorf("Expected Finish exactly once, got %d", sim.finished)
	}
	if sim.completed {
		t.Error("Expected halted run to be incomplete")
	}
}

func TestScheduler_DeactivatedEntitiesAreDropped(t *testing.T) {
	s := New()
	once := &counter{action: func(c *counter, step int) { c.Deactivate() }}
	removed := &counter{}
	stays := &counter{}
	s.Insert(once)
	s.Insert(removed)
	s.Insert(stays)
	s.Remove(removed)

	sim := &recordingSim{}
	sim.onStep = func(step int) {
		// only stays is queued while the escapement itself is executing
		if got := s.Count(); got != 1 {
			t.Errorf("step %d: expected 1 queued entry, got %d", step, got)
		}
	}
	if err := s.Start(sim, 3); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if once.runs != 1 {
		t.Errorf("Expected self-deactivating entity to run once, got %d", once.runs)
	}
	if removed.runs != 0 {
		t.Errorf("Expected removed entity never to run, got %d", removed.runs)
	}
	if stays.runs != 3 {
		t.Errorf("Expected active entity to run 3 times, got %d", stays.runs)
	}
}

func TestScheduler_InsertDuringStepRunsNextStep(t *testing.T) {
	s := New()
	child := &counter{}
	var inserted bool
	parent := &counter{action: func(c *counter, step int) {
		if !inserted {
			s.Insert(child)
			inserted = true
		}
	}}
	s.Insert(parent)

	sim := &recordingSim{}
	if err := s.Start(sim, 3); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if child.runs != 2 {
		t.Errorf("Expected child inserted in step 1 to run in steps 2 and 3, got %d runs", child.runs)
	}
}

func TestScheduler_StartValidation(t *testing.T) {
	s := New()
	if err := s.Start(nil, 1); !errors.Is(err, ErrNilSimulation) {
		t.Errorf("Expected ErrNilSimulation, got %v", err)
	}
	if err := s.Start(&recordingSim{}, 0); !errors.Is(err, ErrInvalidRunTill) {
		t.Errorf("Expected ErrInvalidRunTill, got %v", err)
	}
	if s.State() != StateNotStarted {
		t.Errorf("Expected state not-started after rejected Start, got %s", s.State())
	}
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	s := New()
	c := &counter{}
	s.Insert(c)
	sim := &recordingSim{}
	sim.onStep = func(step int) { s.Stop() }
	if err := s.Start(sim, 5); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// the queue was cleared, so the second run only sees what is reinserted
	s.Insert(c)
	second := &recordingSim{}
	if err := s.Start(second, 2); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if len(second.steps) != 2 || !second.completed {
		t.Errorf("Expected second run to complete 2 steps, got %d (completed=%v)", len(second.steps), second.completed)
	}
	if c.runs != 3 {
		t.Errorf("Expected 3 total runs, got %d", c.runs)
	}
}

func TestRing_GrowPreservesOrder(t *testing.T) {
	var q ring
	items := make([]*counter, 40)
	for i := range items {
		items[i] = &counter{runs: i}
	}
	// interleave pops so head wraps before growing
	for i := 0; i < 10; i++ {
		q.push(items[i])
	}
	for i := 0; i < 5; i++ {
		if got := q.pop().(*counter); got.runs != i {
			t.Fatalf("Expected %d, got %d", i, got.runs)
		}
	}
	for i := 10; i < 40; i++ {
		q.push(items[i])
	}
	for i := 5; i < 40; i++ {
		if got := q.pop().(*counter); got.runs != i {
			t.Fatalf("Expected %d, got %d", i, got.runs)
		}
	}
	if q.pop() != nil {
		t.Error("Expected nil from empty queue")
	}
}
