package chem

import (
	"errors"
	"testing"
)

func TestFactory_CreateTerminalIsInert(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A"}, []string{"B"}, 1))
	te := newTestEnv(t, reg, noKinetics, Options{MaxEntities: 10})

	loc := Location{X: 1, Y: 1, Z: 1}
	if err := te.env.Factory().Create("B", loc); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got := te.cell(1, 1, 1).CountOf("B"); got != 1 {
		t.Errorf("Expected terminal B as a cell count, got %d", got)
	}
	if len(te.queue.items) != 0 {
		t.Errorf("Expected nothing scheduled, got %d", len(te.queue.items))
	}
	if te.tracker.totals["B"] != 1 {
		t.Errorf("Expected tracker +1 for B, got %d", te.tracker.totals["B"])
	}
}

func TestFactory_CreateReactiveSchedulesEntity(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A"}, []string{"B"}, 1))
	te := newTestEnv(t, reg, noKinetics, Options{MaxEntities: 2})

	loc := Location{X: 0, Y: 2, Z: 1}
	if err := te.env.Factory().CreateAll([]string{"A", "A", "A"}, loc); err != nil {
		t.Fatalf("CreateAll failed: %v", err)
	}

	if len(te.queue.items) != 2 {
		t.Fatalf("Expected 2 scheduled entities, got %d", len(te.queue.items))
	}
	m, ok := te.queue.items[0].(*Molecule)
	if !ok {
		t.Fatalf("Expected *Molecule, got %T", te.queue.items[0])
	}
	if m.Formula() != "A" || m.Location() != loc {
		t.Errorf("Expected A at %s, got %s at %s", loc, m.Formula(), m.Location())
	}
	c := te.cell(0, 2, 1)
	if c.Entities() != 2 {
		t.Errorf("Expected 2 entities in the cell, got %d", c.Entities())
	}
	// beyond the budget the product stays a count
	if got := c.CountOf("A"); got != 1 {
		t.Errorf("Expected 1 A as a cell count, got %d", got)
	}
	if te.tracker.totals["A"] != 3 {
		t.Errorf("Expected tracker +3 for A, got %d", te.tracker.totals["A"])
	}
	if got := te.env.Total("A"); got != 3 {
		t.Errorf("Expected total 3 A, got %d", got)
	}
}

func TestFactory_NoEntitiesWhenDisabled(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A"}, []string{"B"}, 1))
	te := newTestEnv(t, reg, noKinetics, Options{})

	if err := te.env.Factory().Create("A", Location{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(te.queue.items) != 0 {
		t.Errorf("Expected no entities, got %d", len(te.queue.items))
	}
	if te.cell(0, 0, 0).CountOf("A") != 1 {
		t.Error("Expected A as a cell count")
	}
}

func TestFactory_OutOfBounds(t *testing.T) {
	reg := mustRegistry(t, mustReaction(t, []string{"A"}, []string{"B"}, 1))
	te := newTestEnv(t, reg, noKinetics, Options{})

	err := te.env.Factory().Create("A", Location{X: 3})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if te.tracker.calls != 0 {
		t.Errorf("Expected no tracker updates, got %d", te.tracker.calls)
	}
}

func TestFactory_CreateDisproportionating(t *testing.T) {
	c1, _ := NewReactionWithOdds([]string{"A", "B"}, []string{"C"}, 1, 0.5)
	c2, _ := NewReactionWithOdds([]string{"A", "B"}, []string{"D", "E"}, 1, 0.5)
	reg := mustRegistry(t, c1, c2)
	te := newTestEnv(t, reg, noKinetics, Options{DisproportionationDelay: 2})

	loc := Location{X: 1, Y: 1, Z: 1}
	if err := te.env.Factory().CreateDisproportionating("A", "B", []ReactionDescription{c1, c2}, loc); err != nil {
		t.Fatalf("CreateDisproportionating failed: %v", err)
	}
	if len(te.queue.items) != 1 {
		t.Fatalf("Expected one intermediate, got %d", len(te.queue.items))
	}
	m := te.queue.items[0].(*Molecule)
	if m.Formula() != "A+B" || !m.Pending() {
		t.Fatalf("Expected pending A+B intermediate, got %s (pending=%v)", m.Formula(), m.Pending())
	}
	if te.tracker.totals["A+B"] != 1 {
		t.Errorf("Expected tracker +1 for A+B, got %d", te.tracker.totals["A+B"])
	}

	m.Step(1)
	if !m.Active() {
		t.Fatal("Expected intermediate to wait for the delay")
	}
	m.Step(2)
	if m.Active() {
		t.Fatal("Expected intermediate to resolve after the delay")
	}

	c := te.cell(1, 1, 1)
	gotC, gotD := c.CountOf("C"), c.CountOf("D")
	if !(gotC == 1 && gotD == 0) && !(gotC == 0 && gotD == 1 && c.CountOf("E") == 1) {
		t.Errorf("Expected exactly one branch's products, got C=%d D=%d E=%d", gotC, gotD, c.CountOf("E"))
	}
	if te.tracker.totals["A+B"] != 0 {
		t.Errorf("Expected intermediate to be retired from the tracker, got %d", te.tracker.totals["A+B"])
	}
	if te.env.Reactor().LiveEntities() != 0 {
		t.Errorf("Expected no live entities, got %d", te.env.Reactor().LiveEntities())
	}
}

type fixedUniform float64

func (f fixedUniform) Float64() float64 { return float64(f) }

func TestChooseByOdds(t *testing.T) {
	a, _ := NewReactionWithOdds([]string{"X", "Y"}, []string{"A"}, 1, 0.25)
	b, _ := NewReactionWithOdds([]string{"X", "Y"}, []string{"B"}, 1, 0.75)
	rs := []ReactionDescription{a, b}

	if got := chooseByOdds(rs, fixedUniform(0.1)); got.Products()[0] != "A" {
		t.Errorf("Expected branch A for draw 0.1, got %s", got)
	}
	if got := chooseByOdds(rs, fixedUniform(0.3)); got.Products()[0] != "B" {
		t.Errorf("Expected branch B for draw 0.3, got %s", got)
	}
}
