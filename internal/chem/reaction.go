package chem

import (
	"strconv"
	"strings"
)

// UV is the pseudo-reactant that marks a photolysis reaction. It is matched
// case-insensitively.
const UV = "UV"

// ReactionKind is the class a reaction is filed under.
type ReactionKind int

const (
	Unimolecular ReactionKind = iota
	Bimolecular
	Photolysis
)

func (k ReactionKind) String() string {
	switch k {
	case Unimolecular:
		return "unimolecular"
	case Bimolecular:
		return "bimolecular"
	case Photolysis:
		return "photolysis"
	default:
		return "unknown"
	}
}

// ReactionDescription is one chemical equation. It is immutable once built;
// the slice accessors return copies.
type ReactionDescription struct {
	reactants []string
	products  []string
	rate      float64
	odds      float64
}

// NewReaction builds a reaction with odds 1. Product tokens with a numeric
// prefix are expanded, so "2H2O" yields two "H2O" products.
func NewReaction(reactants, products []string, rate float64) (ReactionDescription, error) {
	return NewReactionWithOdds(reactants, products, rate, 1)
}

// NewReactionWithOdds builds a reaction with an explicit branching odds.
func NewReactionWithOdds(reactants, products []string, rate, odds float64) (ReactionDescription, error) {
	rs := make([]string, 0, len(reactants))
	for _, r := range reactants {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		rs = append(rs, r)
	}
	if len(rs) == 0 {
		return ReactionDescription{}, configErrorf("new reaction", ErrInvalidReaction, "no reactants")
	}

	ps, err := ExpandProducts(products)
	if err != nil {
		return ReactionDescription{}, err
	}

	return ReactionDescription{reactants: rs, products: ps, rate: rate, odds: odds}, nil
}

// ExpandProducts applies stoichiometric expansion to product tokens. Blank
// tokens are skipped.
func ExpandProducts(tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, formula := splitCoefficient(tok)
		if formula == "" {
			return nil, configErrorf("expand products", ErrInvalidReaction, "token %q has no formula", tok)
		}
		if n == 0 {
			return nil, configErrorf("expand products", ErrInvalidReaction, "token %q has zero coefficient", tok)
		}
		for range n {
			out = append(out, formula)
		}
	}
	return out, nil
}

// splitCoefficient splits "3X" into (3, "X"). Tokens without a leading
// number have coefficient 1.
func splitCoefficient(tok string) (int, string) {
	i := 0
	for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1, tok
	}
	n, err := strconv.Atoi(tok[:i])
	if err != nil {
		return 0, ""
	}
	return n, tok[i:]
}

// Reactants returns a copy of the ordered reactant list, including any UV token.
func (r ReactionDescription) Reactants() []string {
	out := make([]string, len(r.reactants))
	copy(out, r.reactants)
	return out
}

// Products returns a copy of the expanded product list.
func (r ReactionDescription) Products() []string {
	out := make([]string, len(r.products))
	copy(out, r.products)
	return out
}

func (r ReactionDescription) Rate() float64 { return r.rate }

// Odds is the branching probability used when several reactions compete for
// the same reactants.
func (r ReactionDescription) Odds() float64 { return r.odds }

// Kind returns the class of the reaction. It is only meaningful for reactions
// that pass validation.
func (r ReactionDescription) Kind() ReactionKind {
	k, _ := classify(r)
	return k
}

// HasReactants reports whether both formulas take part in the reaction.
func (r ReactionDescription) HasReactants(one, two string) bool {
	var a, b bool
	for _, x := range r.reactants {
		a = a || x == one
		b = b || x == two
	}
	return a && b
}

func (r ReactionDescription) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.reactants, " + "))
	b.WriteString(" -> ")
	b.WriteString(strings.Join(r.products, " + "))
	return b.String()
}

func isUV(token string) bool { return strings.EqualFold(token, UV) }

// classify files a reaction by arity and the presence of UV. The second
// return value is non-empty when the reaction cannot be filed.
func classify(r ReactionDescription) (ReactionKind, string) {
	uv := 0
	for _, x := range r.reactants {
		if isUV(x) {
			uv++
		}
	}
	switch {
	case len(r.reactants) == 1 && uv == 1:
		return Unimolecular, "UV alone is not a reactant"
	case len(r.reactants) == 1:
		return Unimolecular, ""
	case len(r.reactants) == 2 && uv == 1:
		return Photolysis, ""
	case len(r.reactants) == 2 && uv == 0:
		return Bimolecular, ""
	case len(r.reactants) == 2:
		return Photolysis, "photolysis needs exactly one non-UV reactant"
	default:
		return Bimolecular, "reactions take one or two reactants, got " + strconv.Itoa(len(r.reactants))
	}
}

// photolysisKey returns the non-UV reactant of a photolysis reaction.
func photolysisKey(r ReactionDescription) string {
	for _, x := range r.reactants {
		if !isUV(x) {
			return x
		}
	}
	return ""
}
