package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

func pollUntilTerminal(t *testing.T, e TrialExecutor, handle Handle) Result {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, err := e.Poll(context.Background(), handle)
		require.NoError(t, err)
		if result.Status.Terminal() {
			return result
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("trial never reached a terminal state")
	return Result{}
}

func TestLocalExecutorCompletes(t *testing.T) {
	e := NewLocalExecutor(func(a space.Assignment) (float64, error) {
		return a["x"].(float64) * 2, nil
	}, time.Millisecond)

	handle, err := e.Submit(context.Background(), space.Assignment{"x": 3.0}, models.ResourceSpec{})
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	result := pollUntilTerminal(t, e, handle)
	assert.Equal(t, models.TrialStatusCompleted, result.Status)
	assert.Equal(t, 6.0, result.Objective)
}

func TestLocalExecutorFailure(t *testing.T) {
	e := NewLocalExecutor(func(a space.Assignment) (float64, error) {
		return 0, fmt.Errorf("loss is NaN")
	}, 0)

	handle, err := e.Submit(context.Background(), space.Assignment{"x": 1.0}, models.ResourceSpec{})
	require.NoError(t, err)

	result := pollUntilTerminal(t, e, handle)
	assert.Equal(t, models.TrialStatusFailed, result.Status)
	assert.Equal(t, "loss is NaN", result.Reason)
}

func TestLocalExecutorUnknownHandle(t *testing.T) {
	e := NewLocalExecutor(BenchmarkObjective, 0)
	_, err := e.Poll(context.Background(), Handle("missing"))
	assert.Error(t, err)
}

func TestBenchmarkObjective(t *testing.T) {
	v, err := BenchmarkObjective(space.Assignment{
		"x":   1.5,
		"n":   2,
		"opt": "adam",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestFormatHyperparameters(t *testing.T) {
	hp := formatHyperparameters(space.Assignment{
		"learning_rate": 0.001,
		"batch_size":    64,
		"optimizer":     "adam",
	})

	assert.Equal(t, map[string]string{
		"learning_rate": "0.001",
		"batch_size":    "64",
		"optimizer":     "adam",
	}, hp)
}
