package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/daniacca/chemsim/internal/chem"
	"github.com/daniacca/chemsim/internal/store"
)

type stepRecord struct {
	step   int
	counts map[string]int64
}

// memorySink keeps everything in memory.
type memorySink struct {
	runs      []store.Run
	steps     []stepRecord
	finished  int
	completed bool
	failAt    int
}

func (m *memorySink) BeginRun(_ context.Context, run store.Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memorySink) RecordStep(_ context.Context, _ string, step int, counts map[string]int64) error {
	if m.failAt > 0 && step == m.failAt {
		return errors.New("disk full")
	}
	m.steps = append(m.steps, stepRecord{step: step, counts: counts})
	return nil
}

func (m *memorySink) FinishRun(_ context.Context, _ string, _ int, completed bool) error {
	m.finished++
	m.completed = completed
	return nil
}

func mustReaction(t *testing.T, reactants, products []string, rate float64) chem.ReactionDescription {
	t.Helper()
	r, err := chem.NewReaction(reactants, products, rate)
	if err != nil {
		t.Fatalf("failed to build reaction: %v", err)
	}
	return r
}

func testProperties() Properties {
	p := DefaultProperties()
	p.GridSize = 3
	return p
}

func uniformInventory(formula string, perCell int64, size int) []chem.InventoryEntry {
	var out []chem.InventoryEntry
	for x := range size {
		for y := range size {
			for z := range size {
				out = append(out, chem.InventoryEntry{Formula: formula, Count: perCell, Location: chem.Location{X: x, Y: y, Z: z}})
			}
		}
	}
	return out
}
