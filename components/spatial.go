package components

// Coord is a grid coordinate. X is the column, Y is the row.
type Coord struct {
	X, Y int
}
