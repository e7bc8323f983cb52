package search

import (
	"errors"
	"fmt"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// ErrExhausted is returned when a strategy cannot propose any further
// distinct candidate. It signals natural completion, not failure.
var ErrExhausted = errors.New("search space exhausted")

// Observation represents one finished trial visible to a strategy.
// Failed observations carry no usable objective but their assignments
// are still excluded from future proposals.
type Observation struct {
	Assignment space.Assignment
	Objective  float64
	Failed     bool
}

// Strategy proposes candidate assignments for the next trials.
// Proposals must be distinct from each other and from every assignment
// already observed; distinctness is best-effort for continuous
// dimensions and exact for grid/categorical ones.
type Strategy interface {
	Name() models.StrategyName
	Propose(sp *space.ParameterSpace, observations []Observation, k int) ([]space.Assignment, error)
}

// New builds a strategy by name
func New(name models.StrategyName, direction models.ObjectiveDirection, seed int64) (Strategy, error) {
	switch name {
	case models.StrategyRandom:
		return NewRandomSearch(seed), nil
	case models.StrategyGrid:
		return NewGridSearch(DefaultGridSteps), nil
	case models.StrategyBayesian:
		return NewBayesianSearch(direction, seed), nil
	default:
		return nil, fmt.Errorf("unknown search strategy %q", name)
	}
}

// seenKeys collects the canonical keys of every observed assignment
func seenKeys(sp *space.ParameterSpace, observations []Observation) map[string]bool {
	seen := make(map[string]bool, len(observations))
	for _, o := range observations {
		seen[sp.Key(o.Assignment)] = true
	}
	return seen
}

// observedUnits maps observed assignments into unit-cube points,
// skipping assignments that no longer fit the space (e.g. trials
// recorded as failed because their candidate was invalid)
func observedUnits(sp *space.ParameterSpace, observations []Observation) [][]float64 {
	units := make([][]float64, 0, len(observations))
	for _, o := range observations {
		u, err := sp.ToUnitCube(o.Assignment)
		if err != nil {
			continue
		}
		units = append(units, u)
	}
	return units
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
