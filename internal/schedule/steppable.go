package schedule

// Steppable is anything the Scheduler advances once per time step.
// Cells, reactive molecules and the end-of-step escapement all satisfy it.
type Steppable interface {
	// Step performs the entity's per-step action. timeStep is the number of
	// completed time steps when the action runs.
	Step(timeStep int)

	// Active reports whether the entity should remain in the schedule.
	Active() bool

	// Deactivate marks the entity for removal; the Scheduler drops it the
	// next time it is popped.
	Deactivate()
}

// Lifecycle supplies the active flag for a Steppable. Embed it by value to
// get Active and Deactivate.
type Lifecycle struct {
	deactivated bool
}

// Active reports whether Deactivate has not been called yet.
func (l *Lifecycle) Active() bool { return !l.deactivated }

// Deactivate marks the owner inactive.
func (l *Lifecycle) Deactivate() { l.deactivated = true }

// Simulation receives the Scheduler's time step and completion callbacks.
type Simulation interface {
	// Step is invoked once per completed time step. It may call Stop or Halt
	// on the Scheduler.
	Step(timeStep, runTill int)

	// Finish is invoked exactly once when the loop exits. completed is true
	// only if the run reached runTill without being stopped or halted.
	Finish(completed bool)
}
