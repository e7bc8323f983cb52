package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

func TestBayesianColdStartMatchesRandom(t *testing.T) {
	sp := testSpace(t)

	bayes, err := NewBayesianSearch(models.DirectionMaximize, 99).Propose(sp, nil, 4)
	require.NoError(t, err)
	random, err := NewRandomSearch(99).Propose(sp, nil, 4)
	require.NoError(t, err)

	require.Equal(t, len(random), len(bayes))
	for i := range bayes {
		assert.Equal(t, sp.Key(random[i]), sp.Key(bayes[i]))
	}
}

func TestBayesianAllFailedStaysOnFallback(t *testing.T) {
	sp := testSpace(t)

	observed := make([]Observation, 0, 8)
	random := NewRandomSearch(5)
	seedPoints, err := random.Propose(sp, nil, 8)
	require.NoError(t, err)
	for _, a := range seedPoints {
		observed = append(observed, Observation{Assignment: a, Failed: true})
	}

	// Failed observations carry no objective, so the surrogate never
	// has enough signal and proposals stay random
	proposals, err := NewBayesianSearch(models.DirectionMaximize, 5).Propose(sp, observed, 3)
	require.NoError(t, err)
	require.NotEmpty(t, proposals)

	seen := make(map[string]bool)
	for _, o := range observed {
		seen[sp.Key(o.Assignment)] = true
	}
	for _, a := range proposals {
		assert.NoError(t, sp.Validate(a))
		assert.False(t, seen[sp.Key(a)])
	}
}

func TestBayesianProposalsValidAndDistinct(t *testing.T) {
	sp := testSpace(t)

	observed := warmupObservations(t, sp, 8)

	b := NewBayesianSearch(models.DirectionMaximize, 11)
	proposals, err := b.Propose(sp, observed, 3)
	require.NoError(t, err)
	require.Len(t, proposals, 3)

	seen := make(map[string]bool)
	for _, o := range observed {
		seen[sp.Key(o.Assignment)] = true
	}
	for _, a := range proposals {
		assert.NoError(t, sp.Validate(a))
		key := sp.Key(a)
		assert.False(t, seen[key], "proposal repeats observation %s", key)
		seen[key] = true
	}
}

func TestBayesianMinimizeDirection(t *testing.T) {
	sp, err := space.New(space.Dimension{Name: "x", Kind: space.KindContinuous, Min: 0, Max: 1})
	require.NoError(t, err)

	// Objective (x-0.2)^2 is minimized at 0.2; the surrogate should
	// steer proposals toward the low-loss region more often than not
	observed := []Observation{
		{Assignment: space.Assignment{"x": 0.1}, Objective: 0.01},
		{Assignment: space.Assignment{"x": 0.3}, Objective: 0.01},
		{Assignment: space.Assignment{"x": 0.5}, Objective: 0.09},
		{Assignment: space.Assignment{"x": 0.7}, Objective: 0.25},
		{Assignment: space.Assignment{"x": 0.9}, Objective: 0.49},
	}

	b := NewBayesianSearch(models.DirectionMinimize, 21)
	proposals, err := b.Propose(sp, observed, 1)
	require.NoError(t, err)
	require.Len(t, proposals, 1)

	x := proposals[0]["x"].(float64)
	assert.Less(t, x, 0.6)
}

func TestGaussianProcessPredict(t *testing.T) {
	gp := newGaussianProcess(0.2, 1e-6)

	x := [][]float64{{0.0}, {0.25}, {0.5}, {0.75}, {1.0}}
	y := []float64{1, 2, 3, 2, 1}
	require.NoError(t, gp.Fit(x, y))

	// Near a training point the posterior reproduces the observation
	// with low uncertainty
	mean, variance := gp.Predict([]float64{0.5})
	assert.InDelta(t, 3, mean, 0.1)
	assert.Less(t, variance, 0.1)

	// Far from the data uncertainty grows
	_, farVar := gp.Predict([]float64{0.125})
	nearMean, nearVar := gp.Predict([]float64{0.251})
	assert.Greater(t, farVar, nearVar)
	assert.InDelta(t, 2, nearMean, 0.2)
}

func TestGaussianProcessUnfitted(t *testing.T) {
	gp := newGaussianProcess(0.2, 1e-6)
	mean, variance := gp.Predict([]float64{0.5})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)

	assert.Error(t, gp.Fit(nil, nil))
}

func TestExpectedImprovement(t *testing.T) {
	ei := expectedImprovement(0.0)

	// A point predicted well above the incumbent scores higher than one
	// predicted at the incumbent
	assert.Greater(t, ei(2, 0.01, 1), ei(1, 0.01, 1))

	// With no uncertainty and no improvement the score is zero
	assert.Equal(t, 0.0, ei(0.5, 0, 1))
}

func TestUpperConfidenceBound(t *testing.T) {
	ucb := upperConfidenceBound(2)

	// Equal means, more uncertainty scores higher
	assert.Greater(t, ucb(1, 0.04, 0), ucb(1, 0.01, 0))
	assert.InDelta(t, 1.4, ucb(1, 0.04, 0), 1e-9)
}

func warmupObservations(t *testing.T, sp *space.ParameterSpace, n int) []Observation {
	t.Helper()

	points, err := NewRandomSearch(1234).Propose(sp, nil, n)
	require.NoError(t, err)

	observed := make([]Observation, 0, n)
	for i, a := range points {
		observed = append(observed, Observation{Assignment: a, Objective: float64(i)})
	}
	return observed
}
