package chem

import (
	"math"

	"github.com/daniacca/chemsim/internal/schedule"
)

// Cell is one lattice point of the reactor. It keeps a dense count per
// species and, each step, reacts and then diffuses.
type Cell struct {
	schedule.Lifecycle

	env    *Environment
	loc    Location
	volume float64
	counts []int64

	entities []*Molecule
	present  []SpeciesID
}

func newCell(env *Environment, loc Location, volume float64) *Cell {
	return &Cell{env: env, loc: loc, volume: volume}
}

func (c *Cell) Location() Location { return c.loc }

func (c *Cell) Volume() float64 { return c.volume }

// Count returns the number of molecules of id held as a plain count.
func (c *Cell) Count(id SpeciesID) int64 {
	if id < 0 || int(id) >= len(c.counts) {
		return 0
	}
	return c.counts[id]
}

// CountOf returns the count for formula, or 0 if the formula is unknown.
func (c *Cell) CountOf(formula string) int64 {
	id, ok := c.env.catalog().ID(formula)
	if !ok {
		return 0
	}
	return c.Count(id)
}

// Add changes the count of id by n without notifying the tracker.
func (c *Cell) Add(id SpeciesID, n int64) {
	c.ensure(id)
	c.counts[id] += n
}

// Species returns the IDs with a nonzero count, ascending.
func (c *Cell) Species() []SpeciesID {
	var out []SpeciesID
	for id, n := range c.counts {
		if n != 0 {
			out = append(out, SpeciesID(id))
		}
	}
	return out
}

// Entities returns the number of reactive entities located in the cell.
func (c *Cell) Entities() int { return len(c.entities) }

func (c *Cell) ensure(id SpeciesID) {
	if int(id) < len(c.counts) {
		return
	}
	grown := make([]int64, c.env.catalog().Len())
	if int(id) >= len(grown) {
		grown = make([]int64, int(id)+1)
	}
	copy(grown, c.counts)
	c.counts = grown
}

// Step reacts then diffuses.
func (c *Cell) Step(timeStep int) {
	c.react(timeStep)
	c.diffuse()
}

// react visits the species present at the start of the phase in ascending
// ID order. Counts are re-read for every pathway, so earlier reactions in
// the same phase reduce what later ones can consume.
func (c *Cell) react(timeStep int) {
	reg := c.env.registry
	c.present = c.present[:0]
	for id, n := range c.counts {
		if n > 0 {
			c.present = append(c.present, SpeciesID(id))
		}
	}

	for _, id := range c.present {
		pw := reg.pathwaysFor(id)
		if pw == nil {
			continue
		}
		if pw.photolysis != nil {
			c.resolve(timeStep, pw.photolysis)
		}
		for _, cr := range pw.unimolecular {
			c.resolve(timeStep, cr)
		}
		for _, cr := range pw.bimolecular {
			if cr.first() == id {
				c.resolve(timeStep, cr)
			}
		}
	}
}

func (c *Cell) resolve(timeStep int, cr *compiledReaction) {
	available := c.available(cr)
	if available <= 0 {
		return
	}
	q := c.env.kinetics.Quantity(KineticsRequest{
		Step:      timeStep,
		Kind:      cr.kind,
		Reaction:  cr.desc,
		Odds:      cr.desc.odds,
		Available: available,
		Volume:    c.volume,
		Random:    c.env.rng,
	})
	c.apply(cr, boundQuantity(q, available))
}

// available returns how many times cr can fire given the current counts.
func (c *Cell) available(cr *compiledReaction) int64 {
	if len(cr.reactants) == 2 && cr.reactants[0] == cr.reactants[1] {
		return c.Count(cr.reactants[0]) / 2
	}
	out := int64(math.MaxInt64)
	for _, id := range cr.reactants {
		out = min(out, c.Count(id))
	}
	return out
}

// Apply converts quantity reaction events of r in this cell and returns the
// number actually applied after bounding by the reactant counts. Each
// reactant and product change is reported to the tracker.
func (c *Cell) Apply(r ReactionDescription, quantity int64) int64 {
	cr := &compiledReaction{desc: r, kind: r.Kind()}
	cat := c.env.catalog()
	for _, x := range r.reactants {
		if !isUV(x) {
			cr.reactants = append(cr.reactants, cat.Intern(x))
		}
	}
	for _, p := range r.products {
		cr.products = append(cr.products, cat.Intern(p))
	}
	if len(cr.reactants) == 0 {
		return 0
	}
	q := boundQuantity(quantity, c.available(cr))
	c.apply(cr, q)
	return q
}

func (c *Cell) apply(cr *compiledReaction, q int64) {
	if q <= 0 {
		return
	}
	cat := c.env.catalog()
	for _, id := range cr.reactants {
		c.Add(id, -q)
		c.env.tracker.Update(cat.Formula(id), -q)
	}
	for _, id := range cr.products {
		c.env.factory.produce(id, c, q)
	}
}

// diffuse moves part of every nonzero population to one random neighbor.
func (c *Cell) diffuse() {
	reactor := c.env.reactor
	for i := range c.counts {
		if c.counts[i] == 0 {
			continue
		}
		to := reactor.walk(c.loc, c.env.gaussian)
		if to == c.loc {
			continue
		}
		c.transfer(SpeciesID(i), reactor.Cell(to), c.env.gaussian.NormFloat64())
	}
}

// transfer moves floor(count*fraction) molecules of id to target. A negative
// fraction moves mass from target back into c.
func (c *Cell) transfer(id SpeciesID, target *Cell, fraction float64) int64 {
	current := c.Count(id)
	amount := int64(math.Floor(float64(current) * fraction))
	if c.env.opts.ClampTransfers {
		amount = max(amount, -max(target.Count(id), 0))
		amount = min(amount, max(current, 0))
	}
	c.Add(id, -amount)
	target.Add(id, amount)
	return amount
}

func (c *Cell) attach(m *Molecule) {
	m.cell = c
	m.slot = len(c.entities)
	c.entities = append(c.entities, m)
}

func (c *Cell) detach(m *Molecule) {
	last := len(c.entities) - 1
	if m.slot < 0 || m.slot > last || c.entities[m.slot] != m {
		return
	}
	moved := c.entities[last]
	c.entities[m.slot] = moved
	moved.slot = m.slot
	c.entities[last] = nil
	c.entities = c.entities[:last]
	m.cell = nil
	m.slot = -1
}

// takeEntity consumes a live entity of species id other than self, if one
// is present.
func (c *Cell) takeEntity(id SpeciesID, self *Molecule) *Molecule {
	for _, m := range c.entities {
		if m != self && m.id == id && m.pending == nil && m.Active() {
			return m
		}
	}
	return nil
}
