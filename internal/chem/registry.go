package chem

import "slices"

// compiledReaction is a reaction with its formulas resolved to IDs.
type compiledReaction struct {
	desc      ReactionDescription
	kind      ReactionKind
	reactants []SpeciesID // UV excluded
	products  []SpeciesID
}

// first is the species that owns a bimolecular reaction in the cell react
// phase, so each pair is resolved once per cell.
func (c *compiledReaction) first() SpeciesID { return c.reactants[0] }

// partnerOf returns the other reactant of a bimolecular reaction.
func (c *compiledReaction) partnerOf(id SpeciesID) SpeciesID {
	if c.reactants[0] == id {
		return c.reactants[1]
	}
	return c.reactants[0]
}

type pathways struct {
	photolysis   *compiledReaction
	unimolecular []*compiledReaction
	bimolecular  []*compiledReaction
}

// Registry holds the loaded reactions partitioned by class and keyed by
// reactant formula. It is not safe for concurrent use; all calls are made
// from the scheduling goroutine.
type Registry struct {
	logger  Logger
	catalog *Catalog
	loaded  bool

	photolysis   map[string]ReactionDescription
	unimolecular map[string][]ReactionDescription
	bimolecular  map[string][]ReactionDescription

	reactantSet  map[string]struct{}
	hasReactants map[string]bool
	counts       map[ReactionKind]int

	compiled []pathways
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	r := &Registry{logger: logger, catalog: NewCatalog()}
	r.Clear()
	return r
}

// Load classifies and files every reaction. Reactions with a single
// reactant are unimolecular, reactions containing UV are photolysis and the
// remaining pairs are bimolecular. Any previous contents are replaced. On
// error the registry is left empty and unloaded.
func (r *Registry) Load(reactions []ReactionDescription) error {
	r.Clear()

	for _, rd := range reactions {
		kind, issue := classify(rd)
		if issue != "" {
			r.Clear()
			return configErrorf("load reactions", ErrInvalidReaction, "%s: %s", rd, issue)
		}

		switch kind {
		case Unimolecular:
			key := rd.reactants[0]
			r.unimolecular[key] = append(r.unimolecular[key], rd)
		case Photolysis:
			key := photolysisKey(rd)
			if _, exists := r.photolysis[key]; exists {
				r.Clear()
				return configErrorf("load reactions", ErrDuplicatePhotolysis, "registry already contains photolysis products for %s", key)
			}
			r.photolysis[key] = rd
		case Bimolecular:
			for i, key := range rd.reactants {
				if i == 1 && key == rd.reactants[0] {
					break
				}
				r.bimolecular[key] = append(r.bimolecular[key], rd)
			}
		}

		r.counts[kind]++
		if rd.odds != 1 {
			r.logger.Debugf("Loading %s (%s, %g)", rd, kind, rd.odds)
		} else {
			r.logger.Debugf("Loading %s (%s)", rd, kind)
		}
	}

	r.compile(reactions)
	r.loaded = true
	r.logger.Infof("Loaded %d reactions covering %d species", len(reactions), r.catalog.Len())
	return nil
}

// compile interns every formula and builds the ID-indexed pathway tables.
func (r *Registry) compile(reactions []ReactionDescription) {
	// intern in a stable order: reactions as given, reactants before products
	for _, rd := range reactions {
		for _, x := range rd.reactants {
			if !isUV(x) {
				r.catalog.Intern(x)
				r.reactantSet[x] = struct{}{}
			}
		}
		for _, p := range rd.products {
			r.catalog.Intern(p)
		}
	}

	r.compiled = make([]pathways, r.catalog.Len())
	for _, rd := range reactions {
		cr := &compiledReaction{desc: rd, kind: rd.Kind()}
		for _, x := range rd.reactants {
			if !isUV(x) {
				id, _ := r.catalog.ID(x)
				cr.reactants = append(cr.reactants, id)
			}
		}
		for _, p := range rd.products {
			id, _ := r.catalog.ID(p)
			cr.products = append(cr.products, id)
		}

		switch cr.kind {
		case Photolysis:
			r.compiled[cr.reactants[0]].photolysis = cr
		case Unimolecular:
			r.compiled[cr.reactants[0]].unimolecular = append(r.compiled[cr.reactants[0]].unimolecular, cr)
		case Bimolecular:
			a, b := cr.reactants[0], cr.reactants[1]
			r.compiled[a].bimolecular = append(r.compiled[a].bimolecular, cr)
			if b != a {
				r.compiled[b].bimolecular = append(r.compiled[b].bimolecular, cr)
			}
		}
	}
}

// Clear empties every table, the catalog and the has-reactants memo.
func (r *Registry) Clear() {
	r.photolysis = make(map[string]ReactionDescription)
	r.unimolecular = make(map[string][]ReactionDescription)
	r.bimolecular = make(map[string][]ReactionDescription)
	r.reactantSet = make(map[string]struct{})
	r.hasReactants = make(map[string]bool)
	r.counts = make(map[ReactionKind]int)
	r.compiled = nil
	r.catalog.reset()
	r.loaded = false
}

// EnsureLoaded returns ErrNotLoaded wrapped in a ConfigError if Load has
// not succeeded since the last Clear.
func (r *Registry) EnsureLoaded() error {
	if !r.loaded {
		return &ConfigError{Op: "registry", Err: ErrNotLoaded}
	}
	return nil
}

// Catalog returns the interning table shared with the reactor.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// QueryPhotolysis returns the photolysis reaction for formula, if any.
func (r *Registry) QueryPhotolysis(formula string) []ReactionDescription {
	if rd, ok := r.photolysis[formula]; ok {
		return []ReactionDescription{rd}
	}
	return nil
}

// QueryUnimolecular returns the unimolecular reactions consuming formula.
func (r *Registry) QueryUnimolecular(formula string) []ReactionDescription {
	return slices.Clone(r.unimolecular[formula])
}

// QueryBimolecular returns the bimolecular reactions in which formula is
// either reactant.
func (r *Registry) QueryBimolecular(formula string) []ReactionDescription {
	return slices.Clone(r.bimolecular[formula])
}

// HasReactants reports whether formula is consumed by any loaded reaction.
// Formulas that only appear as products, and formulas the registry has
// never seen, are terminal. Results are memoized until Clear.
func (r *Registry) HasReactants(formula string) bool {
	if v, ok := r.hasReactants[formula]; ok {
		return v
	}
	_, v := r.reactantSet[formula]
	r.hasReactants[formula] = v
	return v
}

// Entities returns every formula that appears in a loaded reaction, sorted.
func (r *Registry) Entities() []string {
	out := r.catalog.Formulas()
	slices.Sort(out)
	return out
}

// Counts reports how many reactions of each class are loaded.
func (r *Registry) Counts() map[ReactionKind]int {
	out := make(map[ReactionKind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// pathwaysFor returns the compiled pathways of id, or nil for species that
// were interned after Load (for example inventory-only species).
func (r *Registry) pathwaysFor(id SpeciesID) *pathways {
	if id < 0 || int(id) >= len(r.compiled) {
		return nil
	}
	return &r.compiled[id]
}
