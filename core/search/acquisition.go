package search

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// acquisitionFunc scores a candidate from the surrogate's posterior.
// Inputs are in internal larger-is-better units; higher scores are more
// promising.
type acquisitionFunc func(mean, variance, best float64) float64

// expectedImprovement is the default acquisition: the expected magnitude
// of improvement over the best observed value, with a small xi offset
// encouraging exploration
func expectedImprovement(xi float64) acquisitionFunc {
	return func(mean, variance, best float64) float64 {
		sigma := math.Sqrt(variance)
		improvement := mean - best - xi
		if sigma < 1e-12 {
			if improvement > 0 {
				return improvement
			}
			return 0
		}

		z := improvement / sigma
		return improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	}
}

// upperConfidenceBound is an alternative acquisition trading off the
// posterior mean against uncertainty with weight beta
func upperConfidenceBound(beta float64) acquisitionFunc {
	return func(mean, variance, _ float64) float64 {
		return mean + beta*math.Sqrt(variance)
	}
}
