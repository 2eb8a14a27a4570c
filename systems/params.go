// Package systems implements the segregation model: grid store, neighborhood
// similarity, the satisfaction rule, the step engine and the segregation metric.
package systems

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// Params holds the immutable parameters of one run.
type Params struct {
	Size          int     // Grid is Size x Size
	FractionEmpty float64 // Probability a cell starts empty
	FractionA     float64 // Probability an occupied cell starts as TypeA
	Threshold     float64 // Minimum same-type neighbor fraction to stay put
	AgentsPerStep int     // Cells sampled per tick
}

// Validate checks every parameter and reports the first violation.
// Thresholds above 1 are allowed: no agent with a neighbor is ever satisfied.
func (p Params) Validate() error {
	if err := validateGrid(p.Size, p.FractionEmpty, p.FractionA); err != nil {
		return err
	}
	if math.IsNaN(p.Threshold) || p.Threshold < 0 {
		return fmt.Errorf("%w: threshold %v must be >= 0", ErrInvalidParams, p.Threshold)
	}
	if p.AgentsPerStep <= 0 {
		return fmt.Errorf("%w: agents per step %d must be positive", ErrInvalidParams, p.AgentsPerStep)
	}
	return nil
}

func validateGrid(size int, fractionEmpty, fractionA float64) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidParams, size)
	}
	if !inUnit(fractionEmpty) {
		return fmt.Errorf("%w: fraction empty %v outside [0,1]", ErrInvalidParams, fractionEmpty)
	}
	if !inUnit(fractionA) {
		return fmt.Errorf("%w: fraction a %v outside [0,1]", ErrInvalidParams, fractionA)
	}
	return nil
}

// inUnit is false for NaN.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
