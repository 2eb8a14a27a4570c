package systems

import "github.com/pthm-cable/segregation/components"

// mooreOffsets are the 8 neighbor deltas around a cell.
var mooreOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Similarity is the fraction of same-type neighbors, or undefined when the
// cell is empty or has no occupied neighbors. Undefined is distinct from 0.
type Similarity struct {
	value   float64
	defined bool
}

// Undefined returns the similarity of a cell with nothing to compare against.
func Undefined() Similarity {
	return Similarity{}
}

// Fraction returns a defined similarity.
func Fraction(v float64) Similarity {
	return Similarity{value: v, defined: true}
}

// Defined reports whether a fraction was computed.
func (s Similarity) Defined() bool {
	return s.defined
}

// Value returns the fraction and whether it is defined.
func (s Similarity) Value() (float64, bool) {
	return s.value, s.defined
}

// NeighborSimilarity computes, for the agent at (x, y), the fraction of its
// occupied Moore neighbors that share its type. Both axes wrap, so every
// cell has exactly 8 neighbors.
func NeighborSimilarity(g *Grid, x, y int) Similarity {
	self := g.At(x, y)
	if self == components.Empty {
		return Undefined()
	}

	same, total := 0, 0
	for _, off := range mooreOffsets {
		n := g.Wrapped(x+off[0], y+off[1])
		if n == components.Empty {
			continue
		}
		total++
		if n == self {
			same++
		}
	}

	if total == 0 {
		return Undefined()
	}
	return Fraction(float64(same) / float64(total))
}
