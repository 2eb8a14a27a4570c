package systems

// IsSatisfied reports whether the agent at (x, y) is content with its
// neighborhood. Empty cells and agents without occupied neighbors are always
// satisfied; otherwise the similarity must reach the threshold (inclusive).
func IsSatisfied(g *Grid, x, y int, threshold float64) bool {
	frac, ok := NeighborSimilarity(g, x, y).Value()
	if !ok {
		return true
	}
	return frac >= threshold
}
