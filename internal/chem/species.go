package chem

// SpeciesID is the dense index of an interned formula. IDs are assigned in
// interning order starting at zero, so they can index per-cell count slices.
type SpeciesID int

// Species represents a chemical identity. Two species are equal when their
// formulas are equal.
type Species struct {
	Formula string
}

// Catalog interns formulas into dense SpeciesIDs.
type Catalog struct {
	ids      map[string]SpeciesID
	formulas []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ids: make(map[string]SpeciesID)}
}

// Intern returns the ID for formula, assigning the next free ID if the
// formula has not been seen before.
func (c *Catalog) Intern(formula string) SpeciesID {
	if id, ok := c.ids[formula]; ok {
		return id
	}
	id := SpeciesID(len(c.formulas))
	c.ids[formula] = id
	c.formulas = append(c.formulas, formula)
	return id
}

// ID looks up an already interned formula.
func (c *Catalog) ID(formula string) (SpeciesID, bool) {
	id, ok := c.ids[formula]
	return id, ok
}

// Formula returns the formula for id, or "" if id is out of range.
func (c *Catalog) Formula(id SpeciesID) string {
	if id < 0 || int(id) >= len(c.formulas) {
		return ""
	}
	return c.formulas[id]
}

// Species returns the Species for id.
func (c *Catalog) Species(id SpeciesID) Species {
	return Species{Formula: c.Formula(id)}
}

func (c *Catalog) Len() int { return len(c.formulas) }

// Formulas returns the interned formulas in ID order.
func (c *Catalog) Formulas() []string {
	out := make([]string, len(c.formulas))
	copy(out, c.formulas)
	return out
}

func (c *Catalog) reset() {
	c.ids = make(map[string]SpeciesID)
	c.formulas = nil
}
