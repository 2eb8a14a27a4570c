package systems

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/segregation/components"
)

// Grid is a toroidal size x size lattice of cells stored row-major,
// plus an index of the coordinates of every empty cell.
// The empty index is kept in lockstep with the cells: each empty cell
// appears in it exactly once and no occupied cell appears at all.
type Grid struct {
	size  int
	cells []components.Cell
	empty []components.Coord
}

// Census counts cells by state.
type Census struct {
	Empty int
	A     int
	B     int
}

// Occupied returns the number of agents.
func (c Census) Occupied() int {
	return c.A + c.B
}

// Initialize builds a grid where each cell is drawn independently:
// empty with probability fractionEmpty, otherwise TypeA with probability
// fractionA and TypeB otherwise. Realized fractions vary with the draw.
func Initialize(size int, fractionEmpty, fractionA float64, rng *rand.Rand) (*Grid, error) {
	if err := validateGrid(size, fractionEmpty, fractionA); err != nil {
		return nil, err
	}

	g := &Grid{
		size:  size,
		cells: make([]components.Cell, size*size),
		empty: make([]components.Coord, 0, int(float64(size*size)*fractionEmpty)+1),
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			idx := y*size + x
			if rng.Float64() < fractionEmpty {
				g.cells[idx] = components.Empty
				g.empty = append(g.empty, components.Coord{X: x, Y: y})
				continue
			}
			if rng.Float64() < fractionA {
				g.cells[idx] = components.TypeA
			} else {
				g.cells[idx] = components.TypeB
			}
		}
	}

	return g, nil
}

// NewGridFromRows builds a grid from explicit rows, indexed rows[y][x].
// Rows must form a square of valid cell codes.
func NewGridFromRows(rows [][]components.Cell) (*Grid, error) {
	size := len(rows)
	if size == 0 {
		return nil, fmt.Errorf("%w: grid has no rows", ErrInvalidParams)
	}

	g := &Grid{
		size:  size,
		cells: make([]components.Cell, size*size),
	}
	for y, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidParams, y, len(row), size)
		}
		for x, c := range row {
			if !c.Valid() {
				return nil, fmt.Errorf("%w: invalid cell code %d at (%d,%d)", ErrInvalidParams, c, x, y)
			}
			g.cells[y*size+x] = c
			if c == components.Empty {
				g.empty = append(g.empty, components.Coord{X: x, Y: y})
			}
		}
	}
	return g, nil
}

// Size returns the side length of the grid.
func (g *Grid) Size() int {
	return g.size
}

// At returns the cell at (x, y). Coordinates must be inside the grid.
func (g *Grid) At(x, y int) components.Cell {
	if x < 0 || x >= g.size || y < 0 || y >= g.size {
		panic(fmt.Sprintf("systems: coordinate (%d,%d) outside %dx%d grid", x, y, g.size, g.size))
	}
	return g.cells[y*g.size+x]
}

// Wrapped returns the cell at (x, y) after wrapping both axes modulo the size.
func (g *Grid) Wrapped(x, y int) components.Cell {
	return g.cells[wrap(y, g.size)*g.size+wrap(x, g.size)]
}

// EmptyCount returns the number of empty cells.
func (g *Grid) EmptyCount() int {
	return len(g.empty)
}

// EmptyAt returns the i-th entry of the empty index. Order carries no meaning.
func (g *Grid) EmptyAt(i int) components.Coord {
	return g.empty[i]
}

// Snapshot returns a row-major copy of the cells.
func (g *Grid) Snapshot() []components.Cell {
	out := make([]components.Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// Census counts cells by state.
func (g *Grid) Census() Census {
	var c Census
	for _, cell := range g.cells {
		switch cell {
		case components.Empty:
			c.Empty++
		case components.TypeA:
			c.A++
		case components.TypeB:
			c.B++
		}
	}
	return c
}

// CheckIndex verifies that every cell holds a valid code and that the empty
// index matches the set of empty cells exactly.
func (g *Grid) CheckIndex() error {
	seen := make(map[components.Coord]bool, len(g.empty))
	for i, co := range g.empty {
		if co.X < 0 || co.X >= g.size || co.Y < 0 || co.Y >= g.size {
			return fmt.Errorf("empty index entry %d (%d,%d) outside grid", i, co.X, co.Y)
		}
		if seen[co] {
			return fmt.Errorf("empty index lists (%d,%d) twice", co.X, co.Y)
		}
		seen[co] = true
		if c := g.cells[co.Y*g.size+co.X]; c != components.Empty {
			return fmt.Errorf("empty index lists (%d,%d) holding %s", co.X, co.Y, c)
		}
	}

	empties := 0
	for idx, c := range g.cells {
		if !c.Valid() {
			return fmt.Errorf("invalid cell code %d at index %d", c, idx)
		}
		if c == components.Empty {
			empties++
		}
	}
	if empties != len(g.empty) {
		return fmt.Errorf("grid has %d empty cells, index has %d", empties, len(g.empty))
	}
	return nil
}

// relocate moves the agent at from into the empty cell referenced by
// empty-index slot. The slot is overwritten with from, so the index stays
// a bijection without preserving order.
func (g *Grid) relocate(from components.Coord, slot int) components.Coord {
	to := g.empty[slot]
	fromIdx := from.Y*g.size + from.X
	g.cells[to.Y*g.size+to.X] = g.cells[fromIdx]
	g.cells[fromIdx] = components.Empty
	g.empty[slot] = from
	return to
}

// wrap maps v into [0, n) for any integer v.
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
