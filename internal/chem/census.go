package chem

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpeciesCensus summarizes how one species is spread over the grid.
type SpeciesCensus struct {
	Formula       string  `json:"formula"`
	Total         int64   `json:"total"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Max           float64 `json:"max"`
	OccupiedCells int     `json:"occupied_cells"`
	NegativeCells int     `json:"negative_cells"`
}

// Census is a read-only summary of the reactor at one point in time. It is
// an export for inspection, not a restart snapshot.
type Census struct {
	Step          int             `json:"step"`
	Cells         int             `json:"cells"`
	Entities      int             `json:"entities"`
	NegativeCells int             `json:"negative_cells"`
	Species       []SpeciesCensus `json:"species"`
}

// TakeCensus computes per-species distribution statistics over all cells.
// Entities are counted in the cell they occupy. Species with no molecules
// anywhere are omitted.
func TakeCensus(env *Environment, step int) Census {
	cells := env.reactor.cells
	cat := env.catalog()
	out := Census{Step: step, Cells: len(cells), Entities: env.reactor.liveEntities}

	negative := make([]bool, len(cells))
	values := make([]float64, len(cells))
	for id := range cat.Len() {
		sid := SpeciesID(id)
		sc := SpeciesCensus{Formula: cat.Formula(sid)}
		for i, c := range cells {
			n := c.Count(sid)
			for _, m := range c.entities {
				if m.id == sid {
					n++
				}
			}
			values[i] = float64(n)
			sc.Total += n
			switch {
			case n > 0:
				sc.OccupiedCells++
			case n < 0:
				sc.NegativeCells++
				negative[i] = true
			}
		}
		if sc.OccupiedCells == 0 && sc.NegativeCells == 0 {
			continue
		}
		if len(values) > 1 {
			sc.Mean, sc.StdDev = stat.MeanStdDev(values, nil)
		} else {
			sc.Mean = floats.Sum(values)
		}
		sc.Max = floats.Max(values)
		out.Species = append(out.Species, sc)
	}

	for _, neg := range negative {
		if neg {
			out.NegativeCells++
		}
	}
	return out
}

// Lookup returns the entry for formula.
func (c Census) Lookup(formula string) (SpeciesCensus, bool) {
	for _, sc := range c.Species {
		if sc.Formula == formula {
			return sc, true
		}
	}
	return SpeciesCensus{}, false
}

// WriteJSON encodes the census as indented JSON.
func (c Census) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode census: %w", err)
	}
	return nil
}
