// Package schedule implements the discrete-event loop that drives a
// simulation. Steppables are kept in a FIFO queue; a single escapement entry
// marks the end of each time step and triggers the simulation's callbacks.
package schedule

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrNilSimulation is returned by Start when no simulation is supplied.
	ErrNilSimulation = errors.New("schedule: simulation cannot be nil")
	// ErrInvalidRunTill is returned by Start for a non-positive step count.
	ErrInvalidRunTill = errors.New("schedule: runTill must be positive")
	// ErrAlreadyRunning is returned by Start when the loop is active.
	ErrAlreadyRunning = errors.New("schedule: already running")
)

// Scheduler runs steppables in FIFO order, one pass per time step.
//
// Stop is advisory and takes effect at the end of the current step. Halt
// discards the rest of the current step immediately. Either way Finish is
// called once, from the loop's only exit path.
type Scheduler struct {
	queue ring
	state State

	stopRequested bool
	halted        bool

	timeStep int
	runTill  int

	sim Simulation
}

// New returns an idle Scheduler.
func New() *Scheduler {
	return &Scheduler{state: StateNotStarted}
}

// Insert appends s to the back of the queue. Entities inserted while a step
// is executing first run during the next time step.
func (s *Scheduler) Insert(st Steppable) {
	if st == nil {
		return
	}
	s.queue.push(st)
}

// Remove deactivates st; it is dropped from the queue when next popped.
func (s *Scheduler) Remove(st Steppable) {
	st.Deactivate()
}

// Count returns the number of queued entries, including inactive ones not
// yet popped.
func (s *Scheduler) Count() int { return s.queue.len() }

// TimeStep returns the number of completed time steps.
func (s *Scheduler) TimeStep() int { return s.timeStep }

// RunTill returns the configured number of steps for the current run.
func (s *Scheduler) RunTill() int { return s.runTill }

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Stop requests that the run end at the end of the current time step.
func (s *Scheduler) Stop() {
	s.stopRequested = true
	if s.state == StateRunning {
		s.state = StateStopping
	}
}

// Halt clears the queue and ends the run without finishing the current step.
func (s *Scheduler) Halt() {
	s.halted = true
	s.queue.clear()
	if s.state == StateRunning {
		s.state = StateStopping
	}
}

// Start runs the loop until the queue drains, then calls sim.Finish.
// It returns an error without stepping anything if the arguments are invalid
// or the scheduler is already running.
func (s *Scheduler) Start(sim Simulation, runTill int) error {
	if sim == nil {
		return ErrNilSimulation
	}
	if runTill <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRunTill, runTill)
	}
	if s.state == StateRunning || s.state == StateStopping {
		return ErrAlreadyRunning
	}

	s.sim = sim
	s.runTill = runTill
	s.timeStep = 0
	s.stopRequested = false
	s.halted = false
	s.state = StateRunning

	s.queue.push(&escapement{s: s})

	for s.queue.len() > 0 {
		st := s.queue.pop()
		if !st.Active() {
			continue
		}
		st.Step(s.timeStep)
		if s.halted {
			break
		}
		if st.Active() {
			s.queue.push(st)
		}
	}

	s.queue.clear()
	completed := !s.halted && s.timeStep >= s.runTill
	s.state = StateStopped
	sim.Finish(completed)
	return nil
}

// escapement marks the end of a time step.
type escapement struct {
	Lifecycle
	s *Scheduler
}

func (e *escapement) Step(int) {
	s := e.s
	s.timeStep++
	s.sim.Step(s.timeStep, s.runTill)
	if s.timeStep >= s.runTill || s.stopRequested {
		s.queue.clear()
		e.Deactivate()
	}
}
