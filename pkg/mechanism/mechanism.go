// Package mechanism provides a fluent API for building reaction mechanisms
// in Go code instead of CSV files.
package mechanism

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/daniacca/chemsim/internal/chem"
)

// Mechanism collects reactions.
type Mechanism struct {
	name      string
	reactions []*ReactionBuilder
}

// New creates an empty mechanism. The name is only used in error messages.
func New(name string) *Mechanism {
	return &Mechanism{name: name}
}

// Add appends one or more reactions.
func (m *Mechanism) Add(rbs ...*ReactionBuilder) *Mechanism {
	m.reactions = append(m.reactions, rbs...)
	return m
}

// Len returns the number of reactions added so far.
func (m *Mechanism) Len() int { return len(m.reactions) }

// Build converts every reaction, reporting all invalid ones together.
// The result is also checked the way the registry will check it, so a
// mechanism that builds also loads.
func (m *Mechanism) Build() ([]chem.ReactionDescription, error) {
	out := make([]chem.ReactionDescription, 0, len(m.reactions))
	var errs []error
	for i, rb := range m.reactions {
		rd, err := rb.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: reaction %d: %w", m.name, i, err))
			continue
		}
		out = append(out, rd)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := chem.ValidateReactions(out); err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	return out, nil
}

// WriteCSV writes the mechanism in the reactions file format: two reactant
// columns, as many product columns as the longest reaction needs, the rate
// and the odds.
func (m *Mechanism) WriteCSV(w io.Writer) error {
	reactions, err := m.Build()
	if err != nil {
		return err
	}

	products := 1
	for _, r := range reactions {
		products = max(products, len(r.Products()))
	}

	cw := csv.NewWriter(w)
	header := []string{"Reactant", "Reactant"}
	for range products {
		header = append(header, "Product")
	}
	header = append(header, "Rate", "Odds")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range reactions {
		row := make([]string, 0, len(header))
		rs := r.Reactants()
		row = append(row, rs...)
		for len(row) < 2 {
			row = append(row, "")
		}
		ps := r.Products()
		row = append(row, ps...)
		for len(row) < 2+products {
			row = append(row, "")
		}
		row = append(row,
			strconv.FormatFloat(r.Rate(), 'g', -1, 64),
			strconv.FormatFloat(r.Odds(), 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReactionBuilder builds one reaction.
type ReactionBuilder struct {
	reactants []string
	products  []string
	rate      float64
	odds      float64
}

// React starts a reaction between one or two reactants.
func React(reactants ...string) *ReactionBuilder {
	return &ReactionBuilder{reactants: reactants, rate: 1, odds: 1}
}

// Photolysis starts a UV-driven reaction of formula.
func Photolysis(formula string) *ReactionBuilder {
	return React(formula, chem.UV)
}

// Yields sets the products. Coefficients such as "2H2O" are expanded.
func (rb *ReactionBuilder) Yields(products ...string) *ReactionBuilder {
	rb.products = products
	return rb
}

// Rate sets the rate constant. It defaults to 1.
func (rb *ReactionBuilder) Rate(rate float64) *ReactionBuilder {
	rb.rate = rate
	return rb
}

// Odds sets the branching odds. It defaults to 1.
func (rb *ReactionBuilder) Odds(odds float64) *ReactionBuilder {
	rb.odds = odds
	return rb
}

// Build converts the builder into a reaction description.
func (rb *ReactionBuilder) Build() (chem.ReactionDescription, error) {
	return chem.NewReactionWithOdds(rb.reactants, rb.products, rb.rate, rb.odds)
}
