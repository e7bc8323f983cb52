package search

import (
	"hypertuner/core/models"
	"hypertuner/core/space"
)

// DefaultGridSteps is the number of values a numeric dimension is
// discretized into
const DefaultGridSteps = 10

// GridSearch enumerates the Cartesian product of discretized
// per-dimension values in a deterministic order
type GridSearch struct {
	steps int

	// grid is built lazily on first Propose for a given space
	builtFor *space.ParameterSpace
	grid     []space.Assignment
}

// NewGridSearch creates a grid search with the given step count
func NewGridSearch(steps int) *GridSearch {
	if steps < 2 {
		steps = 2
	}
	return &GridSearch{steps: steps}
}

// Name returns the strategy name
func (g *GridSearch) Name() models.StrategyName {
	return models.StrategyGrid
}

// Propose returns the next k untried grid points in enumeration order.
// Once the grid is consumed it reports ErrExhausted; a short final batch
// is returned without error.
func (g *GridSearch) Propose(sp *space.ParameterSpace, observations []Observation, k int) ([]space.Assignment, error) {
	if k <= 0 {
		return nil, nil
	}

	if g.builtFor != sp {
		g.build(sp)
	}

	seen := seenKeys(sp, observations)

	proposals := make([]space.Assignment, 0, k)
	for _, a := range g.grid {
		if len(proposals) == k {
			break
		}
		key := sp.Key(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		proposals = append(proposals, a)
	}

	if len(proposals) == 0 {
		return nil, ErrExhausted
	}
	return proposals, nil
}

// build precomputes the full grid as the Cartesian product of
// per-dimension unit coordinates, deduplicated by canonical key
// (integer rounding can collapse neighboring steps)
func (g *GridSearch) build(sp *space.ParameterSpace) {
	dims := sp.Dimensions()
	axes := make([][]float64, len(dims))

	for i, d := range dims {
		switch {
		case d.Frozen():
			axes[i] = []float64{0}
		case d.Kind == space.KindCategorical:
			n := len(d.Choices)
			axis := make([]float64, n)
			for j := range axis {
				axis[j] = float64(j) / float64(n-1)
			}
			axes[i] = axis
		case d.Kind == space.KindInteger && d.Max-d.Min+1 <= float64(g.steps):
			// Few enough integers to enumerate exactly
			n := int(d.Max-d.Min) + 1
			axis := make([]float64, n)
			for j := range axis {
				axis[j] = float64(j) / float64(n-1)
			}
			axes[i] = axis
		default:
			axis := make([]float64, g.steps)
			for j := range axis {
				axis[j] = float64(j) / float64(g.steps-1)
			}
			axes[i] = axis
		}
	}

	g.grid = g.grid[:0]
	dedupe := make(map[string]bool)

	u := make([]float64, len(dims))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(dims) {
			a, err := sp.FromUnitCube(u)
			if err != nil {
				return
			}
			key := sp.Key(a)
			if dedupe[key] {
				return
			}
			dedupe[key] = true
			g.grid = append(g.grid, a)
			return
		}
		for _, v := range axes[depth] {
			u[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)

	g.builtFor = sp
}
