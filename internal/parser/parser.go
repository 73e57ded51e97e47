// Package parser reads reaction and chemical definitions from CSV.
//
// Reaction files start with a header whose leading columns are named
// "Reactant", followed by "Product" columns, then the rate column and an
// optional "Odds" column. Chemical files have a header followed by rows of
// name, formula and mols.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/daniacca/chemsim/internal/chem"
)

// Chemical is one row of the chemicals file.
type Chemical struct {
	Name    string  `json:"name"`
	Formula string  `json:"formula"`
	Mols    float64 `json:"mols"`
}

// ParseError locates a problem in an input file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	// ErrBadHeader is returned when the reactions header has no reactant or
	// product columns.
	ErrBadHeader = errors.New("malformed header")
	// ErrEmpty is returned for a file without a header row.
	ErrEmpty = errors.New("empty input")
)

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	return cr
}

// ParseReactions reads reaction definitions. Empty reactant and product
// cells are skipped; product coefficients are expanded.
func ParseReactions(r io.Reader) ([]chem.ReactionDescription, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	reactants, products := 0, 0
	for reactants < len(header) && strings.EqualFold(strings.TrimSpace(header[reactants]), "reactant") {
		reactants++
	}
	for reactants+products < len(header) && strings.EqualFold(strings.TrimSpace(header[reactants+products]), "product") {
		products++
	}
	if reactants == 0 || products == 0 || reactants+products >= len(header) {
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("%w: need Reactant, Product and rate columns", ErrBadHeader)}
	}
	rateCol := reactants + products
	oddsCol := -1
	if rateCol+1 < len(header) && strings.EqualFold(strings.TrimSpace(header[rateCol+1]), "odds") {
		oddsCol = rateCol + 1
	}

	var out []chem.ReactionDescription
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(record) {
			continue
		}
		if len(record) <= rateCol {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected at least %d columns, got %d", rateCol+1, len(record))}
		}

		rate, err := strconv.ParseFloat(strings.TrimSpace(record[rateCol]), 64)
		if err != nil {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("invalid rate %q: %w", record[rateCol], err)}
		}
		odds := 1.0
		if oddsCol >= 0 && oddsCol < len(record) && strings.TrimSpace(record[oddsCol]) != "" {
			odds, err = strconv.ParseFloat(strings.TrimSpace(record[oddsCol]), 64)
			if err != nil {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("invalid odds %q: %w", record[oddsCol], err)}
			}
		}

		rd, err := chem.NewReactionWithOdds(record[:reactants], record[reactants:rateCol], rate, odds)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		out = append(out, rd)
	}
	return out, nil
}

// ParseChemicals reads the initial chemical inventory in mols.
func ParseChemicals(r io.Reader) ([]Chemical, error) {
	cr := newReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []Chemical
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(record) {
			continue
		}
		if len(record) < 3 {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected name, formula, mols; got %d columns", len(record))}
		}
		formula := strings.TrimSpace(record[1])
		if formula == "" {
			return nil, &ParseError{Line: line, Err: errors.New("formula is required")}
		}
		mols, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("invalid mols %q: %w", record[2], err)}
		}
		out = append(out, Chemical{Name: strings.TrimSpace(record[0]), Formula: formula, Mols: mols})
	}
	return out, nil
}

// ReadReactionsFile opens path and parses it with ParseReactions.
func ReadReactionsFile(path string) ([]chem.ReactionDescription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reactions file: %w", err)
	}
	defer f.Close()

	out, err := ParseReactions(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// ReadChemicalsFile opens path and parses it with ParseChemicals.
func ReadChemicalsFile(path string) ([]Chemical, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chemicals file: %w", err)
	}
	defer f.Close()

	out, err := ParseChemicals(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
