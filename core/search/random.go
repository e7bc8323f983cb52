package search

import (
	"math/rand"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// minHistoryDistance is the minimum unit-cube distance a proposal must
// keep from every previously observed point
const minHistoryDistance = 1e-6

// RandomSearch draws candidates uniformly in unit-cube space.
// Deterministic under a fixed seed.
type RandomSearch struct {
	rng *rand.Rand
}

// NewRandomSearch creates a random search with the given seed
func NewRandomSearch(seed int64) *RandomSearch {
	return &RandomSearch{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the strategy name
func (r *RandomSearch) Name() models.StrategyName {
	return models.StrategyRandom
}

// Propose draws up to k distinct assignments. On small finite spaces it
// may return fewer; if no new point can be found at all it reports
// ErrExhausted.
func (r *RandomSearch) Propose(sp *space.ParameterSpace, observations []Observation, k int) ([]space.Assignment, error) {
	if k <= 0 {
		return nil, nil
	}

	seen := seenKeys(sp, observations)
	history := observedUnits(sp, observations)

	proposals := make([]space.Assignment, 0, k)
	attempts := 100 * k

	for len(proposals) < k && attempts > 0 {
		attempts--

		u := r.drawUnit(sp.Len())
		if tooClose(u, history, minHistoryDistance) {
			continue
		}

		a, err := sp.FromUnitCube(u)
		if err != nil {
			continue
		}

		key := sp.Key(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		history = append(history, u)
		proposals = append(proposals, a)
	}

	if len(proposals) == 0 {
		return nil, ErrExhausted
	}
	return proposals, nil
}

func (r *RandomSearch) drawUnit(dims int) []float64 {
	u := make([]float64, dims)
	for i := range u {
		u[i] = r.rng.Float64()
	}
	return u
}

func tooClose(u []float64, points [][]float64, minDist float64) bool {
	minSq := minDist * minDist
	for _, p := range points {
		if squaredDistance(u, p) < minSq {
			return true
		}
	}
	return false
}
