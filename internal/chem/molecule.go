package chem

import (
	"slices"

	"github.com/daniacca/chemsim/internal/schedule"
)

// Molecule is a reactive entity: a single molecule that is scheduled on its
// own because its fate needs per-entity state, such as a pending
// disproportionation outcome.
type Molecule struct {
	schedule.Lifecycle

	env     *Environment
	id      SpeciesID
	formula string

	cell *Cell
	slot int

	pending *pathway
}

// pathway is a reaction outcome chosen ahead of time and emitted after a
// delay of whole steps.
type pathway struct {
	reaction  ReactionDescription
	remaining int
}

func (m *Molecule) Formula() string { return m.formula }

// Location returns the entity's cell coordinate.
func (m *Molecule) Location() Location {
	if m.cell == nil {
		return Location{}
	}
	return m.cell.loc
}

// Pending reports whether the entity is waiting to emit a chosen outcome.
func (m *Molecule) Pending() bool { return m.pending != nil }

// Step resolves a pending outcome, or tries bimolecular, photolysis and
// unimolecular pathways in that order, or takes one random-walk step.
func (m *Molecule) Step(timeStep int) {
	if m.cell == nil {
		m.Deactivate()
		return
	}

	if m.pending != nil {
		m.pending.remaining--
		if m.pending.remaining <= 0 {
			m.finish(m.pending.reaction.Products())
		}
		return
	}

	if m.reactBimolecular(timeStep) {
		return
	}

	pw := m.env.registry.pathwaysFor(m.id)
	if pw != nil {
		if pw.photolysis != nil && m.fires(timeStep, pw.photolysis, pw.photolysis.desc.odds) {
			m.finish(pw.photolysis.desc.Products())
			return
		}
		for _, cr := range pw.unimolecular {
			if m.fires(timeStep, cr, cr.desc.odds) {
				m.finish(cr.desc.Products())
				return
			}
		}
	}

	m.env.reactor.move(m, m.env.reactor.walk(m.cell.loc, m.env.gaussian))
}

// reactBimolecular looks for a partner in the same cell, first among plain
// counts and then among other entities. Several reactions for the same pair
// produce a disproportionating intermediate.
func (m *Molecule) reactBimolecular(timeStep int) bool {
	pw := m.env.registry.pathwaysFor(m.id)
	if pw == nil || len(pw.bimolecular) == 0 {
		return false
	}

	var tried []SpeciesID
	for i, cr := range pw.bimolecular {
		partner := cr.partnerOf(m.id)
		if slices.Contains(tried, partner) {
			continue
		}
		tried = append(tried, partner)
		if !m.partnerPresent(partner) {
			continue
		}

		group := []ReactionDescription{cr.desc}
		for _, other := range pw.bimolecular[i+1:] {
			if other.partnerOf(m.id) == partner {
				group = append(group, other.desc)
			}
		}
		odds := cr.desc.odds
		if len(group) > 1 {
			odds = 1
		}
		if !m.fires(timeStep, cr, odds) {
			continue
		}

		m.consumePartner(partner)
		if len(group) > 1 {
			loc := m.cell.loc
			m.retire()
			m.env.factory.disproportionate(m.formula, m.env.catalog().Formula(partner), group, loc)
			return true
		}
		m.finish(cr.desc.Products())
		return true
	}
	return false
}

func (m *Molecule) partnerPresent(id SpeciesID) bool {
	return m.cell.Count(id) > 0 || m.cell.takeEntity(id, m) != nil
}

func (m *Molecule) consumePartner(id SpeciesID) {
	if m.cell.Count(id) > 0 {
		m.cell.Add(id, -1)
		m.env.tracker.Update(m.env.catalog().Formula(id), -1)
		return
	}
	if other := m.cell.takeEntity(id, m); other != nil {
		other.retire()
	}
}

func (m *Molecule) fires(timeStep int, cr *compiledReaction, odds float64) bool {
	q := m.env.kinetics.Quantity(KineticsRequest{
		Step:      timeStep,
		Kind:      cr.kind,
		Reaction:  cr.desc,
		Odds:      odds,
		Available: 1,
		Volume:    m.cell.volume,
		Random:    m.env.rng,
	})
	return q >= 1
}

// finish consumes the entity and creates its products where it stood.
func (m *Molecule) finish(products []string) {
	loc := m.cell.loc
	m.retire()
	m.env.factory.createAll(products, loc)
}

// retire reports the entity's removal and takes it out of the reactor.
func (m *Molecule) retire() {
	m.env.tracker.Update(m.formula, -1)
	m.env.reactor.release(m)
	m.Deactivate()
}
