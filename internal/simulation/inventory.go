package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/daniacca/chemsim/internal/chem"
	"github.com/daniacca/chemsim/internal/parser"
)

// ScaleInventory converts molar quantities into molecule counts and spreads
// them over a grid of gridSize^3 cells.
//
// The smallest molar value fixes the scale: with e its decimal exponent
// (mantissa rounded to one digit), every quantity is multiplied by
// 10^(|e|+1) and truncated. Counts are then multiplied by
// maxMolecules/total so the inventory fills the molecule budget. Each cell
// receives an equal share; the remainder is placed one molecule at a time
// in cells drawn from rng.
//
// The returned scalar converts molecule counts back to mols
// (mols = count / scalar).
func ScaleInventory(chemicals []parser.Chemical, maxMolecules int64, gridSize int, rng *chem.RNG) ([]chem.InventoryEntry, float64, error) {
	if len(chemicals) == 0 {
		return nil, 0, errors.New("scale inventory: no chemicals")
	}
	if gridSize <= 0 {
		return nil, 0, fmt.Errorf("scale inventory: grid size must be positive, got %d", gridSize)
	}
	if maxMolecules <= 0 {
		return nil, 0, fmt.Errorf("scale inventory: max molecules must be positive, got %d", maxMolecules)
	}
	if rng == nil {
		rng = chem.NewRNG(0)
	}

	smallest := math.MaxFloat64
	for _, c := range chemicals {
		if c.Mols < 0 || math.IsNaN(c.Mols) || math.IsInf(c.Mols, 0) {
			return nil, 0, fmt.Errorf("scale inventory: invalid quantity %g for %s", c.Mols, c.Formula)
		}
		smallest = min(smallest, c.Mols)
	}

	exp := molarExponent(smallest)
	scaling := math.Pow(10, math.Abs(float64(exp))+1)

	counts := make([]int64, len(chemicals))
	var total int64
	for i, c := range chemicals {
		counts[i] = int64(c.Mols * scaling)
		total += counts[i]
	}
	if total <= 0 {
		return nil, 0, errors.New("scale inventory: chemicals scale to zero molecules")
	}
	multiplier := maxMolecules / total
	if multiplier == 0 {
		return nil, 0, fmt.Errorf("scale inventory: max molecules %d is below the scaled total %d", maxMolecules, total)
	}

	cells := gridSize * gridSize * gridSize
	var entries []chem.InventoryEntry
	for i, c := range chemicals {
		count := counts[i] * multiplier
		share := count / int64(cells)
		extra := make([]int64, cells)
		for range count % int64(cells) {
			extra[rng.IntN(cells)]++
		}
		for idx := range cells {
			n := share + extra[idx]
			if n == 0 {
				continue
			}
			entries = append(entries, chem.InventoryEntry{
				Formula:  c.Formula,
				Count:    n,
				Location: locationOf(idx, gridSize),
			})
		}
	}

	return entries, scaling * float64(multiplier), nil
}

// molarExponent returns the decimal exponent of x written with a one-digit
// mantissa, so 9.96e-3 yields -2 because the mantissa rounds up to 10.
// Zero has exponent 0.
func molarExponent(x float64) int {
	if x <= 0 {
		return 0
	}
	e := int(math.Floor(math.Log10(x)))
	m := x / math.Pow(10, float64(e))
	if m < 1 {
		e--
		m *= 10
	}
	if math.Round(m*10) >= 100 {
		e++
	}
	return e
}

func locationOf(idx, size int) chem.Location {
	return chem.Location{
		X: idx / (size * size),
		Y: (idx / size) % size,
		Z: idx % size,
	}
}
