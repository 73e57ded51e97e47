package chem

import "fmt"

// Location is an integer lattice coordinate.
type Location struct {
	X, Y, Z int
}

// Within reports whether l lies inside [0,size)^3.
func (l Location) Within(size int) bool {
	return l.X >= 0 && l.X < size &&
		l.Y >= 0 && l.Y < size &&
		l.Z >= 0 && l.Z < size
}

// Clamp moves each axis of l into [0,size-1].
func (l Location) Clamp(size int) Location {
	return Location{X: clampAxis(l.X, size), Y: clampAxis(l.Y, size), Z: clampAxis(l.Z, size)}
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d,%d)", l.X, l.Y, l.Z)
}

func clampAxis(v, size int) int {
	if v >= size {
		v = size - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Reactor is the dense cubic grid of cells. It is allocated once and owns
// its cells for the lifetime of a run.
type Reactor struct {
	size  int
	cells []*Cell

	liveEntities int
}

func newReactor(env *Environment, size int, volume float64) (*Reactor, error) {
	if size <= 0 {
		return nil, configErrorf("new reactor", ErrInvalidGrid, "size must be positive, got %d", size)
	}
	if volume <= 0 {
		return nil, configErrorf("new reactor", ErrInvalidGrid, "cell volume must be positive, got %g", volume)
	}
	r := &Reactor{size: size, cells: make([]*Cell, size*size*size)}
	for x := range size {
		for y := range size {
			for z := range size {
				loc := Location{X: x, Y: y, Z: z}
				r.cells[r.index(loc)] = newCell(env, loc, volume)
			}
		}
	}
	return r, nil
}

func (r *Reactor) index(l Location) int {
	return (l.X*r.size+l.Y)*r.size + l.Z
}

// Size returns the edge length of the grid.
func (r *Reactor) Size() int { return r.size }

// Cell returns the cell at l, or nil when l is outside the grid.
func (r *Reactor) Cell(l Location) *Cell {
	if !l.Within(r.size) {
		return nil
	}
	return r.cells[r.index(l)]
}

// Cells returns every cell in x, y, z order.
func (r *Reactor) Cells() []*Cell {
	out := make([]*Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Insert places a reactive entity in the cell at l.
func (r *Reactor) Insert(m *Molecule, l Location) error {
	c := r.Cell(l)
	if c == nil {
		return configErrorf("reactor insert", ErrOutOfBounds, "%s outside reactor of size %d", l, r.size)
	}
	c.attach(m)
	r.liveEntities++
	return nil
}

// LiveEntities returns the number of reactive entities currently placed.
func (r *Reactor) LiveEntities() int { return r.liveEntities }

// move relocates m to the cell at l.
func (r *Reactor) move(m *Molecule, l Location) {
	target := r.Cell(l)
	if target == nil || target == m.cell {
		return
	}
	m.cell.detach(m)
	target.attach(m)
}

// release removes a consumed entity from its cell.
func (r *Reactor) release(m *Molecule) {
	if m.cell == nil {
		return
	}
	m.cell.detach(m)
	r.liveEntities--
}

// walk draws a random-walk target for from. Each axis moves +1 for a draw
// in (0,1], -1 for a draw in [-1,0) and stays put otherwise. The result is
// clamped to the grid.
func (r *Reactor) walk(from Location, g Gaussian) Location {
	to := Location{
		X: from.X + walkOffset(g.NormFloat64()),
		Y: from.Y + walkOffset(g.NormFloat64()),
		Z: from.Z + walkOffset(g.NormFloat64()),
	}
	return to.Clamp(r.size)
}

func walkOffset(draw float64) int {
	switch {
	case draw > 0 && draw <= 1:
		return 1
	case draw < 0 && draw >= -1:
		return -1
	default:
		return 0
	}
}
