package components

// Agent identifies a resident and its group.
type Agent struct {
	ID   uint32
	Kind Cell // TypeA or TypeB
}

// Home is the agent's current grid cell.
type Home struct {
	X, Y int
}

// Tenure tracks how often an agent has relocated.
type Tenure struct {
	Moves        int
	LastMoveTick int32 // -1 until the first move
}

// Settled reports whether the agent has never moved.
func (t Tenure) Settled() bool {
	return t.Moves == 0
}
