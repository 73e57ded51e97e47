package chem

import (
	"errors"

	"github.com/daniacca/chemsim/internal/schedule"
)

// EntityQueue receives newly scheduled steppables. *schedule.Scheduler
// satisfies it.
type EntityQueue interface {
	Insert(st schedule.Steppable)
}

// Options are the tunables of an Environment.
type Options struct {
	GridSize   int
	CellVolume float64
	// ClampTransfers bounds diffusion so neither cell goes negative.
	ClampTransfers bool
	// MaxEntities caps live reactive entities. Zero keeps every product as a
	// cell count.
	MaxEntities int
	// DisproportionationDelay is the number of steps before a
	// disproportionating intermediate emits its products. Minimum 1.
	DisproportionationDelay int
}

// EnvironmentConfig wires the collaborators of an Environment. Registry and
// Queue are required; the rest have defaults.
type EnvironmentConfig struct {
	Registry *Registry
	Queue    EntityQueue
	Tracker  Tracker
	Kinetics Kinetics
	RNG      *RNG
	// Gaussian overrides the source of diffusion draws; it defaults to RNG.
	Gaussian Gaussian
	Logger   Logger
	Options  Options
}

// Environment is the per-run context shared by cells, entities and the
// factory. It replaces process-wide singletons: everything a step needs is
// reached through it.
type Environment struct {
	registry *Registry
	reactor  *Reactor
	factory  *Factory
	queue    EntityQueue
	tracker  Tracker
	kinetics Kinetics
	rng      *RNG
	gaussian Gaussian
	logger   Logger
	opts     Options
}

// NewEnvironment validates cfg and allocates the reactor grid.
func NewEnvironment(cfg EnvironmentConfig) (*Environment, error) {
	if cfg.Registry == nil {
		return nil, &ConfigError{Op: "new environment", Err: ErrNotLoaded}
	}
	if err := cfg.Registry.EnsureLoaded(); err != nil {
		return nil, err
	}
	if cfg.Queue == nil {
		return nil, errors.New("new environment: queue is required")
	}

	env := &Environment{
		registry: cfg.Registry,
		queue:    cfg.Queue,
		tracker:  cfg.Tracker,
		kinetics: cfg.Kinetics,
		rng:      cfg.RNG,
		gaussian: cfg.Gaussian,
		logger:   cfg.Logger,
		opts:     cfg.Options,
	}
	if env.tracker == nil {
		env.tracker = noOpTracker{}
	}
	if env.rng == nil {
		env.rng = NewRNG(0)
	}
	if env.gaussian == nil {
		env.gaussian = env.rng
	}
	if env.kinetics == nil {
		env.kinetics = FirstOrderKinetics{TimeStep: 1, UVIntensity: 1}
	}
	if env.logger == nil {
		env.logger = NewNoOpLogger()
	}

	reactor, err := newReactor(env, cfg.Options.GridSize, cfg.Options.CellVolume)
	if err != nil {
		return nil, err
	}
	env.reactor = reactor
	env.factory = &Factory{env: env}
	return env, nil
}

func (e *Environment) catalog() *Catalog { return e.registry.catalog }

func (e *Environment) Registry() *Registry { return e.registry }

func (e *Environment) Reactor() *Reactor { return e.reactor }

func (e *Environment) Factory() *Factory { return e.factory }

func (e *Environment) Options() Options { return e.opts }

// Populate seeds the initial inventory as cell counts, reports it to the
// tracker and schedules every cell. All entries are validated first; on
// error nothing is changed.
func (e *Environment) Populate(inventory []InventoryEntry) error {
	if err := ValidateInventory(inventory, e.reactor.size); err != nil {
		return &ConfigError{Op: "populate", Err: ErrInvalidInventory, Detail: err.Error()}
	}

	cat := e.catalog()
	for _, entry := range inventory {
		id := cat.Intern(entry.Formula)
		e.reactor.Cell(entry.Location).Add(id, entry.Count)
		e.tracker.Update(entry.Formula, entry.Count)
	}
	for _, c := range e.reactor.cells {
		e.queue.Insert(c)
	}
	e.logger.Infof("Populated %d cells with %d inventory entries", len(e.reactor.cells), len(inventory))
	return nil
}

// Total returns the sum over all cells and entities of formula.
func (e *Environment) Total(formula string) int64 {
	id, ok := e.catalog().ID(formula)
	if !ok {
		return 0
	}
	var total int64
	for _, c := range e.reactor.cells {
		total += c.Count(id)
		for _, m := range c.entities {
			if m.id == id {
				total++
			}
		}
	}
	return total
}
