package search

import (
	"math/rand"
	"sort"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// DefaultWarmup is the number of completed observations required before
// the surrogate model is trusted
const DefaultWarmup = 5

// BayesianSearch proposes candidates by fitting a Gaussian-process
// surrogate over completed observations and maximizing an acquisition
// function over the unit cube. Below the warm-up threshold (or when no
// completed observation exists) it behaves exactly like RandomSearch.
type BayesianSearch struct {
	rng      *rand.Rand
	fallback *RandomSearch

	direction models.ObjectiveDirection
	acquire   acquisitionFunc

	// Warmup is the completed-observation count below which proposals
	// fall back to random search
	Warmup int
	// Candidates is the number of random starting points refined per
	// proposal round
	Candidates int
	// Refinements is the number of local hill-climb steps per candidate
	Refinements int
	// MinBatchDist is the minimum unit-cube distance enforced between
	// the k selections of one batch
	MinBatchDist float64

	lengthscale float64
	noise       float64
}

// NewBayesianSearch creates a Bayesian search with the given seed.
// The fallback random search shares the seed so cold-start behavior is
// identical to RandomSearch with that seed.
func NewBayesianSearch(direction models.ObjectiveDirection, seed int64) *BayesianSearch {
	rng := rand.New(rand.NewSource(seed))
	return &BayesianSearch{
		rng:          rng,
		fallback:     &RandomSearch{rng: rng},
		direction:    direction,
		acquire:      expectedImprovement(0.01),
		Warmup:       DefaultWarmup,
		Candidates:   200,
		Refinements:  20,
		MinBatchDist: 0.05,
		lengthscale:  0.2,
		noise:        1e-6,
	}
}

// Name returns the strategy name
func (b *BayesianSearch) Name() models.StrategyName {
	return models.StrategyBayesian
}

// Propose selects up to k candidates by acquisition value. Acquisition
// ties break toward larger predicted variance. Failed observations
// contribute nothing to the fit but their assignments stay excluded.
func (b *BayesianSearch) Propose(sp *space.ParameterSpace, observations []Observation, k int) ([]space.Assignment, error) {
	if k <= 0 {
		return nil, nil
	}

	var inputs [][]float64
	var outputs []float64
	for _, o := range observations {
		if o.Failed {
			continue
		}
		u, err := sp.ToUnitCube(o.Assignment)
		if err != nil {
			continue
		}
		inputs = append(inputs, u)
		outputs = append(outputs, b.internal(o.Objective))
	}

	// Cold start: not enough signal for a surrogate
	if len(inputs) < b.Warmup {
		return b.fallback.Propose(sp, observations, k)
	}

	gp := newGaussianProcess(b.lengthscale, b.noise)
	if err := gp.Fit(inputs, outputs); err != nil {
		return b.fallback.Propose(sp, observations, k)
	}

	best := outputs[0]
	for _, v := range outputs[1:] {
		if v > best {
			best = v
		}
	}

	frozen := frozenMask(sp)

	type scoredCandidate struct {
		unit     []float64
		acq      float64
		variance float64
	}

	candidates := make([]scoredCandidate, 0, b.Candidates)
	for i := 0; i < b.Candidates; i++ {
		u := b.drawUnit(sp.Len(), frozen)
		u = b.refine(gp, u, best, frozen)
		mean, variance := gp.Predict(u)
		candidates = append(candidates, scoredCandidate{
			unit:     u,
			acq:      b.acquire(mean, variance, best),
			variance: variance,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].acq != candidates[j].acq {
			return candidates[i].acq > candidates[j].acq
		}
		return candidates[i].variance > candidates[j].variance
	})

	seen := seenKeys(sp, observations)
	history := observedUnits(sp, observations)

	proposals := make([]space.Assignment, 0, k)
	var selected [][]float64

	for _, c := range candidates {
		if len(proposals) == k {
			break
		}
		u := c.unit
		if tooClose(u, selected, b.MinBatchDist) || tooClose(u, history, minHistoryDistance) {
			continue
		}

		a, err := sp.FromUnitCube(u)
		if err != nil || sp.Validate(a) != nil || seen[sp.Key(a)] {
			// Resample from the same local region before giving up on it
			a, u = b.resampleNear(sp, u, seen, selected)
			if a == nil {
				continue
			}
		}

		seen[sp.Key(a)] = true
		selected = append(selected, u)
		proposals = append(proposals, a)
	}

	if len(proposals) < k {
		extra, err := b.fallback.Propose(sp, withProposed(observations, proposals), k-len(proposals))
		if err == nil {
			proposals = append(proposals, extra...)
		}
	}

	if len(proposals) == 0 {
		return nil, ErrExhausted
	}
	return proposals, nil
}

// refine hill-climbs the acquisition surface from a starting point with
// Gaussian perturbations whose scale decays on rejection
func (b *BayesianSearch) refine(gp *gaussianProcess, start []float64, best float64, frozen []bool) []float64 {
	current := append([]float64(nil), start...)
	mean, variance := gp.Predict(current)
	currentAcq := b.acquire(mean, variance, best)

	step := 0.1
	for i := 0; i < b.Refinements; i++ {
		candidate := append([]float64(nil), current...)
		for j := range candidate {
			if frozen[j] {
				continue
			}
			candidate[j] = clampUnit(candidate[j] + b.rng.NormFloat64()*step)
		}

		mean, variance = gp.Predict(candidate)
		if acq := b.acquire(mean, variance, best); acq > currentAcq {
			current, currentAcq = candidate, acq
		} else {
			step *= 0.9
		}
	}
	return current
}

func (b *BayesianSearch) resampleNear(sp *space.ParameterSpace, u []float64, seen map[string]bool, selected [][]float64) (space.Assignment, []float64) {
	for attempt := 0; attempt < 5; attempt++ {
		ru := append([]float64(nil), u...)
		for j := range ru {
			ru[j] = clampUnit(ru[j] + b.rng.NormFloat64()*0.02)
		}
		if tooClose(ru, selected, b.MinBatchDist) {
			continue
		}
		ra, err := sp.FromUnitCube(ru)
		if err != nil || sp.Validate(ra) != nil || seen[sp.Key(ra)] {
			continue
		}
		return ra, ru
	}
	return nil, nil
}

func (b *BayesianSearch) drawUnit(dims int, frozen []bool) []float64 {
	u := make([]float64, dims)
	for i := range u {
		if frozen[i] {
			continue
		}
		u[i] = b.rng.Float64()
	}
	return u
}

// internal converts an objective into larger-is-better units
func (b *BayesianSearch) internal(objective float64) float64 {
	if b.direction == models.DirectionMinimize {
		return -objective
	}
	return objective
}

func frozenMask(sp *space.ParameterSpace) []bool {
	dims := sp.Dimensions()
	mask := make([]bool, len(dims))
	for i, d := range dims {
		mask[i] = d.Frozen()
	}
	return mask
}

func withProposed(observations []Observation, proposals []space.Assignment) []Observation {
	out := append([]Observation(nil), observations...)
	for _, a := range proposals {
		out = append(out, Observation{Assignment: a, Failed: true})
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
