// Package simulation owns a single run: it wires the registry, environment,
// scheduler and tracker together, checks termination after every step and
// reports results to the configured sinks.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daniacca/chemsim/internal/chem"
	"github.com/daniacca/chemsim/internal/schedule"
	"github.com/daniacca/chemsim/internal/store"
)

const tracerName = "github.com/daniacca/chemsim/internal/simulation"

// Config describes one run. Reactions and RunTill are required.
type Config struct {
	RunID      string
	Reactions  []chem.ReactionDescription
	Inventory  []chem.InventoryEntry
	Properties Properties
	Seed       int64
	RunTill    int
	// MoleculeToMol converts counts to mols in the result; zero skips the
	// conversion.
	MoleculeToMol float64

	// RNG is the run's random stream. It defaults to NewRNG(Seed); pass the
	// stream used to place the inventory to keep a run reproducible from one
	// seed.
	RNG           *chem.RNG
	Kinetics      chem.Kinetics
	Sink          ResultsSink
	Notifications *chem.NotificationManager
	Logger        chem.Logger
	Tracer        trace.Tracer
}

// Result summarizes a finished run.
type Result struct {
	RunID     string             `json:"run_id"`
	Steps     int                `json:"steps"`
	Completed bool               `json:"completed"`
	Counts    map[string]int64   `json:"counts"`
	Mols      map[string]float64 `json:"mols,omitempty"`
	Census    chem.Census        `json:"census"`
}

// Simulation implements schedule.Simulation for one run.
type Simulation struct {
	cfg      Config
	logger   chem.Logger
	registry *chem.Registry
	env      *chem.Environment
	sched    *schedule.Scheduler
	tracker  *CountTracker

	ctx  context.Context
	span trace.Span

	steps     int
	completed bool
	finished  bool
	sinkErr   error
	census    chem.Census
}

// New validates cfg, loads the reactions and seeds the reactor. Nothing is
// stepped until Run.
func New(cfg Config) (*Simulation, error) {
	if cfg.RunTill <= 0 {
		return nil, fmt.Errorf("%w: got %d", schedule.ErrInvalidRunTill, cfg.RunTill)
	}
	if err := cfg.Properties.Validate(); err != nil {
		return nil, fmt.Errorf("invalid properties: %w", err)
	}
	if cfg.RunID == "" {
		cfg.RunID = NewRunID()
	}
	if cfg.Logger == nil {
		cfg.Logger = chem.NewNoOpLogger()
	}
	if cfg.RNG == nil {
		cfg.RNG = chem.NewRNG(cfg.Seed)
	}
	if cfg.Kinetics == nil {
		cfg.Kinetics = chem.FirstOrderKinetics{
			TimeStep:    cfg.Properties.TimeStep,
			UVIntensity: cfg.Properties.UVIntensity,
		}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	registry := chem.NewRegistry(cfg.Logger)
	if err := registry.Load(cfg.Reactions); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: registry,
		sched:    schedule.New(),
		tracker:  NewCountTracker(),
		ctx:      context.Background(),
	}

	env, err := chem.NewEnvironment(chem.EnvironmentConfig{
		Registry: registry,
		Queue:    s.sched,
		Tracker:  s.tracker,
		Kinetics: cfg.Kinetics,
		RNG:      cfg.RNG,
		Logger:   cfg.Logger,
		Options:  cfg.Properties.options(),
	})
	if err != nil {
		return nil, err
	}
	if err := env.Populate(cfg.Inventory); err != nil {
		return nil, err
	}
	s.env = env
	return s, nil
}

// Run executes a run described by cfg in one call.
func Run(ctx context.Context, cfg Config) (Result, error) {
	s, err := New(cfg)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx)
}

func (s *Simulation) RunID() string { return s.cfg.RunID }

func (s *Simulation) Environment() *chem.Environment { return s.env }

func (s *Simulation) Scheduler() *schedule.Scheduler { return s.sched }

func (s *Simulation) Tracker() *CountTracker { return s.tracker }

// Run drives the scheduler to completion. Cancelling ctx stops the run at
// the next step boundary; the partial result is still returned. The error is
// non-nil only if the run could not start or the results sink failed.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	if s.finished {
		return Result{}, errors.New("simulation already ran")
	}

	ctx, span := s.cfg.Tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("chemsim.run_id", s.cfg.RunID),
		attribute.Int64("chemsim.seed", s.cfg.Seed),
		attribute.Int("chemsim.run_till", s.cfg.RunTill),
		attribute.Int("chemsim.grid_size", s.cfg.Properties.GridSize),
	))
	defer span.End()
	s.ctx = ctx
	s.span = span

	if s.cfg.Sink != nil {
		err := s.cfg.Sink.BeginRun(ctx, store.Run{
			ID:            s.cfg.RunID,
			Seed:          s.cfg.Seed,
			RunTill:       s.cfg.RunTill,
			GridSize:      s.cfg.Properties.GridSize,
			MoleculeToMol: s.cfg.MoleculeToMol,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "begin run")
			return Result{}, fmt.Errorf("begin run: %w", err)
		}
	}

	s.logger.Infof("Starting run %s for %d steps", s.cfg.RunID, s.cfg.RunTill)
	if err := s.sched.Start(s, s.cfg.RunTill); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start")
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Int("chemsim.steps", s.steps),
		attribute.Bool("chemsim.completed", s.completed),
	)
	if s.sinkErr != nil {
		span.RecordError(s.sinkErr)
		span.SetStatus(codes.Error, "results sink")
	}
	return s.result(), s.sinkErr
}

// Step is called by the scheduler after every completed time step.
func (s *Simulation) Step(timeStep, runTill int) {
	s.steps = timeStep

	if err := s.ctx.Err(); err != nil {
		s.logger.Warnf("Run %s cancelled at step %d: %v", s.cfg.RunID, timeStep, err)
		s.sched.Stop()
	}
	if group, ok := s.exhausted(); ok {
		s.logger.Infof("%s exhausted, terminating at step %d", strings.Join(group, " and "), timeStep)
		s.sched.Stop()
	}

	final := timeStep >= runTill || s.sched.State() == schedule.StateStopping
	if s.cfg.Sink != nil && (timeStep%s.cfg.Properties.ReportInterval == 0 || final) {
		// sampled counts are written even after cancellation
		ctx := context.WithoutCancel(s.ctx)
		if err := s.cfg.Sink.RecordStep(ctx, s.cfg.RunID, timeStep, s.tracker.Snapshot()); err != nil {
			s.logger.Errorf("Failed to record step %d of run %s: %v", timeStep, s.cfg.RunID, err)
			s.sinkErr = fmt.Errorf("record step %d: %w", timeStep, err)
			s.sched.Halt()
			return
		}
	}

	if s.cfg.Notifications != nil {
		s.cfg.Notifications.Broadcast(chem.NewStepEvent(s.cfg.RunID, timeStep, runTill,
			s.tracker.counts, s.env.Reactor().LiveEntities()))
	}
	if s.span != nil {
		s.span.AddEvent("step", trace.WithAttributes(
			attribute.Int("chemsim.step", timeStep),
			attribute.Int("chemsim.entities", s.env.Reactor().LiveEntities()),
		))
	}
	s.logger.Debugf("%d of %d", timeStep, runTill)
}

// Finish is called once when the scheduler exits.
func (s *Simulation) Finish(completed bool) {
	s.finished = true
	s.completed = completed
	s.census = chem.TakeCensus(s.env, s.steps)

	if s.cfg.Sink != nil {
		ctx := context.WithoutCancel(s.ctx)
		if err := s.cfg.Sink.FinishRun(ctx, s.cfg.RunID, s.steps, completed); err != nil {
			s.logger.Errorf("Failed to finish run %s: %v", s.cfg.RunID, err)
			s.sinkErr = errors.Join(s.sinkErr, fmt.Errorf("finish run: %w", err))
		}
	}
	if s.cfg.Notifications != nil {
		event := chem.NewStepEvent(s.cfg.RunID, s.steps, s.cfg.RunTill, s.tracker.counts, s.env.Reactor().LiveEntities())
		event.Final = true
		s.cfg.Notifications.Broadcast(event)
	}
	if s.census.NegativeCells > 0 {
		s.logger.Warnf("Run %s ended with %d cells holding negative counts", s.cfg.RunID, s.census.NegativeCells)
	}
	s.logger.Infof("Run %s finished after %d steps (completed=%v)", s.cfg.RunID, s.steps, completed)
}

// exhausted returns the first termination group whose formulas are all used
// up.
func (s *Simulation) exhausted() ([]string, bool) {
	for _, group := range s.cfg.Properties.TerminateOn {
		done := len(group) > 0
		for _, f := range group {
			if s.tracker.Count(f) > 0 {
				done = false
				break
			}
		}
		if done {
			return group, true
		}
	}
	return nil, false
}

func (s *Simulation) result() Result {
	r := Result{
		RunID:     s.cfg.RunID,
		Steps:     s.steps,
		Completed: s.completed,
		Counts:    s.tracker.Snapshot(),
		Census:    s.census,
	}
	if s.cfg.MoleculeToMol > 0 {
		r.Mols = make(map[string]float64, len(r.Counts))
		for f, n := range r.Counts {
			r.Mols[f] = float64(n) / s.cfg.MoleculeToMol
		}
	}
	return r
}
