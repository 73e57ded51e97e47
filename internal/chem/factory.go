package chem

import "strings"

// Factory applies the creation policy for produced species. Terminal
// species only ever exist as cell counts. Reactive species become scheduled
// Molecule entities while the live-entity budget allows.
type Factory struct {
	env *Environment
}

// Create produces one molecule of formula at loc. The tracker is always
// told about the new molecule.
func (f *Factory) Create(formula string, loc Location) error {
	c := f.env.reactor.Cell(loc)
	if c == nil {
		return configErrorf("create", ErrOutOfBounds, "%s outside reactor of size %d", loc, f.env.reactor.size)
	}
	f.produce(f.env.catalog().Intern(formula), c, 1)
	return nil
}

// CreateAll calls Create for each formula.
func (f *Factory) CreateAll(formulas []string, loc Location) error {
	if f.env.reactor.Cell(loc) == nil {
		return configErrorf("create", ErrOutOfBounds, "%s outside reactor of size %d", loc, f.env.reactor.size)
	}
	f.createAll(formulas, loc)
	return nil
}

// CreateDisproportionating creates an intermediate entity for the pair
// one+two. Its outcome is drawn from reactions by odds and emitted after
// the configured delay.
func (f *Factory) CreateDisproportionating(one, two string, reactions []ReactionDescription, loc Location) error {
	if f.env.reactor.Cell(loc) == nil {
		return configErrorf("create", ErrOutOfBounds, "%s outside reactor of size %d", loc, f.env.reactor.size)
	}
	if len(reactions) == 0 {
		return configErrorf("create", ErrInvalidReaction, "no reactions for %s+%s", one, two)
	}
	f.disproportionate(one, two, reactions, loc)
	return nil
}

func (f *Factory) createAll(formulas []string, loc Location) {
	c := f.env.reactor.Cell(loc)
	cat := f.env.catalog()
	for _, formula := range formulas {
		f.produce(cat.Intern(formula), c, 1)
	}
}

// produce adds n molecules of id to c, spawning entities for reactive
// species while the budget allows and keeping the rest as counts.
func (f *Factory) produce(id SpeciesID, c *Cell, n int64) {
	if n <= 0 {
		return
	}
	formula := f.env.catalog().Formula(id)
	f.env.tracker.Update(formula, n)

	if f.env.registry.HasReactants(formula) {
		for n > 0 && f.budget() > 0 {
			f.spawn(id, formula, c)
			n--
		}
	}
	if n > 0 {
		c.Add(id, n)
	}
}

func (f *Factory) budget() int {
	limit := f.env.opts.MaxEntities
	if limit <= 0 {
		return 0
	}
	return limit - f.env.reactor.liveEntities
}

func (f *Factory) spawn(id SpeciesID, formula string, c *Cell) *Molecule {
	m := &Molecule{env: f.env, id: id, formula: formula, slot: -1}
	_ = f.env.reactor.Insert(m, c.loc)
	f.env.queue.Insert(m)
	return m
}

func (f *Factory) disproportionate(one, two string, reactions []ReactionDescription, loc Location) {
	formula := strings.Join([]string{one, two}, "+")
	c := f.env.reactor.Cell(loc)
	m := f.spawn(f.env.catalog().Intern(formula), formula, c)
	m.pending = &pathway{
		reaction:  chooseByOdds(reactions, f.env.rng),
		remaining: max(f.env.opts.DisproportionationDelay, 1),
	}
	f.env.tracker.Update(formula, 1)
}

// chooseByOdds picks a reaction with probability proportional to its odds.
// One uniform draw is consumed.
func chooseByOdds(reactions []ReactionDescription, u Uniform) ReactionDescription {
	total := 0.0
	for _, r := range reactions {
		total += r.odds
	}
	draw := u.Float64() * total
	for _, r := range reactions {
		if draw < r.odds {
			return r
		}
		draw -= r.odds
	}
	return reactions[len(reactions)-1]
}
