package space

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace(t *testing.T) *ParameterSpace {
	t.Helper()
	sp, err := New(
		Dimension{Name: "learning_rate", Kind: KindContinuous, Min: 1e-4, Max: 1e-1, Scaling: ScalingLogarithmic},
		Dimension{Name: "batch_size", Kind: KindInteger, Min: 16, Max: 256},
		Dimension{Name: "optimizer", Kind: KindCategorical, Choices: []string{"sgd", "adam", "rmsprop"}},
	)
	require.NoError(t, err)
	return sp
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		dims    []Dimension
		wantErr string
	}{
		{
			name:    "empty space",
			dims:    nil,
			wantErr: "at least one dimension",
		},
		{
			name:    "empty dimension name",
			dims:    []Dimension{{Kind: KindContinuous, Min: 0, Max: 1}},
			wantErr: "empty name",
		},
		{
			name: "duplicate names",
			dims: []Dimension{
				{Name: "x", Kind: KindContinuous, Min: 0, Max: 1},
				{Name: "x", Kind: KindContinuous, Min: 0, Max: 1},
			},
			wantErr: "duplicate dimension",
		},
		{
			name:    "min exceeds max",
			dims:    []Dimension{{Name: "x", Kind: KindContinuous, Min: 2, Max: 1}},
			wantErr: "exceeds max",
		},
		{
			name:    "fractional integer bounds",
			dims:    []Dimension{{Name: "x", Kind: KindInteger, Min: 1.5, Max: 3}},
			wantErr: "whole numbers",
		},
		{
			name:    "log scaling with zero min",
			dims:    []Dimension{{Name: "x", Kind: KindContinuous, Min: 0, Max: 1, Scaling: ScalingLogarithmic}},
			wantErr: "strictly positive",
		},
		{
			name:    "categorical without choices",
			dims:    []Dimension{{Name: "x", Kind: KindCategorical}},
			wantErr: "requires choices",
		},
		{
			name:    "categorical duplicate choices",
			dims:    []Dimension{{Name: "x", Kind: KindCategorical, Choices: []string{"a", "a"}}},
			wantErr: "duplicate choice",
		},
		{
			name:    "categorical with scaling",
			dims:    []Dimension{{Name: "x", Kind: KindCategorical, Choices: []string{"a"}, Scaling: ScalingLinear}},
			wantErr: "not meaningful",
		},
		{
			name:    "unknown kind",
			dims:    []Dimension{{Name: "x", Kind: "boolean"}},
			wantErr: "unknown kind",
		},
		{
			name: "valid point dimension",
			dims: []Dimension{{Name: "x", Kind: KindContinuous, Min: 3, Max: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dims...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	sp := testSpace(t)

	valid := Assignment{"learning_rate": 0.01, "batch_size": 64, "optimizer": "adam"}
	assert.NoError(t, sp.Validate(valid))

	tests := []struct {
		name       string
		assignment Assignment
	}{
		{"missing dimension", Assignment{"learning_rate": 0.01, "batch_size": 64}},
		{"extra dimension", Assignment{"learning_rate": 0.01, "batch_size": 64, "optimizer": "adam", "momentum": 0.9}},
		{"out of range", Assignment{"learning_rate": 0.5, "batch_size": 64, "optimizer": "adam"}},
		{"fractional integer", Assignment{"learning_rate": 0.01, "batch_size": 64.5, "optimizer": "adam"}},
		{"unknown choice", Assignment{"learning_rate": 0.01, "batch_size": 64, "optimizer": "adagrad"}},
		{"wrong type", Assignment{"learning_rate": "fast", "batch_size": 64, "optimizer": "adam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sp.Validate(tt.assignment)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAssignment)
		})
	}
}

func TestUnitCubeRoundTrip(t *testing.T) {
	sp := testSpace(t)

	a := Assignment{"learning_rate": 1e-2, "batch_size": 128, "optimizer": "rmsprop"}

	u, err := sp.ToUnitCube(a)
	require.NoError(t, err)
	require.Len(t, u, 3)
	for _, c := range u {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}

	back, err := sp.FromUnitCube(u)
	require.NoError(t, err)

	assert.InDelta(t, 1e-2, back["learning_rate"].(float64), 1e-9)
	assert.Equal(t, 128, back["batch_size"])
	assert.Equal(t, "rmsprop", back["optimizer"])
}

func TestLogarithmicScaling(t *testing.T) {
	sp, err := New(Dimension{Name: "lr", Kind: KindContinuous, Min: 1e-4, Max: 1, Scaling: ScalingLogarithmic})
	require.NoError(t, err)

	// The unit midpoint of a log dimension is the geometric mean of the bounds
	a, err := sp.FromUnitCube([]float64{0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1e-2, a["lr"].(float64), 1e-9)

	u, err := sp.ToUnitCube(Assignment{"lr": 1e-4})
	require.NoError(t, err)
	assert.InDelta(t, 0, u[0], 1e-12)

	u, err = sp.ToUnitCube(Assignment{"lr": 1.0})
	require.NoError(t, err)
	assert.InDelta(t, 1, u[0], 1e-12)
}

func TestFrozenDimensions(t *testing.T) {
	sp, err := New(
		Dimension{Name: "x", Kind: KindContinuous, Min: 0, Max: 1},
		Dimension{Name: "fixed", Kind: KindContinuous, Min: 7, Max: 7},
		Dimension{Name: "only", Kind: KindCategorical, Choices: []string{"adam"}},
	)
	require.NoError(t, err)

	u, err := sp.ToUnitCube(Assignment{"x": 0.5, "fixed": 7.0, "only": "adam"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, u[1])
	assert.Equal(t, 0.0, u[2])

	a, err := sp.FromUnitCube([]float64{0.25, 0.9, 0.9})
	require.NoError(t, err)
	assert.Equal(t, 7.0, a["fixed"])
	assert.Equal(t, "adam", a["only"])
}

func TestFromUnitCubeClamping(t *testing.T) {
	sp, err := New(
		Dimension{Name: "x", Kind: KindContinuous, Min: 0, Max: 10},
		Dimension{Name: "n", Kind: KindInteger, Min: 1, Max: 5},
	)
	require.NoError(t, err)

	a, err := sp.FromUnitCube([]float64{-0.5, 1.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a["x"])
	assert.Equal(t, 5, a["n"])

	_, err = sp.FromUnitCube([]float64{0.5})
	assert.Error(t, err)
}

func TestIntegerRounding(t *testing.T) {
	sp, err := New(Dimension{Name: "n", Kind: KindInteger, Min: 0, Max: 10})
	require.NoError(t, err)

	a, err := sp.FromUnitCube([]float64{0.26})
	require.NoError(t, err)
	assert.Equal(t, 3, a["n"])

	v := a["n"].(int)
	assert.Equal(t, float64(v), math.Trunc(float64(v)))
}

func TestKeyCanonical(t *testing.T) {
	sp := testSpace(t)

	a := Assignment{"learning_rate": 0.01, "batch_size": 64, "optimizer": "adam"}
	b := Assignment{"optimizer": "adam", "batch_size": 64, "learning_rate": 0.01}
	assert.Equal(t, sp.Key(a), sp.Key(b))

	c := Assignment{"learning_rate": 0.02, "batch_size": 64, "optimizer": "adam"}
	assert.NotEqual(t, sp.Key(a), sp.Key(c))
}
