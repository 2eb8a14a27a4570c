// Package components defines the cell codes and ECS components for the simulation.
package components

// Cell is the categorical state of one grid coordinate.
// The numeric codes are stable; renderers map them to fixed colors.
type Cell uint8

const (
	Empty Cell = iota
	TypeA
	TypeB
)

// String returns the display name for a Cell.
func (c Cell) String() string {
	switch c {
	case Empty:
		return "empty"
	case TypeA:
		return "a"
	case TypeB:
		return "b"
	default:
		return "invalid"
	}
}

// Valid reports whether c is one of the three cell codes.
func (c Cell) Valid() bool {
	return c <= TypeB
}

// Occupied reports whether the cell holds an agent.
func (c Cell) Occupied() bool {
	return c == TypeA || c == TypeB
}
