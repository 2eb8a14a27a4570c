package game

import (
	"github.com/pthm-cable/segregation/components"
)

// AgentStats summarizes the agent registry.
type AgentStats struct {
	Agents    int
	Settled   int // Agents that never moved
	MaxMoves  int
	MeanMoves float64
}

// registerAgents creates one entity per occupied cell.
func (g *Game) registerAgents() {
	size := g.grid.Size()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cell := g.grid.At(x, y)
			if !cell.Occupied() {
				continue
			}

			agent := components.Agent{ID: g.nextID, Kind: cell}
			g.nextID++
			home := components.Home{X: x, Y: y}
			tenure := components.Tenure{LastMoveTick: -1}

			g.occupants[y*size+x] = g.agentMapper.NewEntity(&agent, &home, &tenure)
		}
	}
}

// onMove keeps the registry in step with a relocation.
func (g *Game) onMove(from, to components.Coord) {
	size := g.grid.Size()
	fromIdx := from.Y*size + from.X
	toIdx := to.Y*size + to.X

	entity := g.occupants[fromIdx]
	g.occupants[toIdx] = entity

	_, home, tenure := g.agentMapper.Get(entity)
	home.X, home.Y = to.X, to.Y
	tenure.Moves++
	tenure.LastMoveTick = g.tick
}

// agentMoves returns the move count of every agent.
func (g *Game) agentMoves() []float64 {
	moves := make([]float64, 0, g.nextID)
	query := g.agentFilter.Query()
	for query.Next() {
		_, _, tenure := query.Get()
		moves = append(moves, float64(tenure.Moves))
	}
	return moves
}

// AgentStats queries the registry for move statistics.
func (g *Game) AgentStats() AgentStats {
	var s AgentStats
	total := 0

	query := g.agentFilter.Query()
	for query.Next() {
		_, _, tenure := query.Get()
		s.Agents++
		total += tenure.Moves
		if tenure.Settled() {
			s.Settled++
		}
		if tenure.Moves > s.MaxMoves {
			s.MaxMoves = tenure.Moves
		}
	}

	if s.Agents > 0 {
		s.MeanMoves = float64(total) / float64(s.Agents)
	}
	return s
}
