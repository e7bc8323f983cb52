package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// ObjectiveFunc evaluates a hyperparameter assignment and returns the
// objective metric, or an error when the trial fails
type ObjectiveFunc func(assignment space.Assignment) (float64, error)

// LocalExecutor runs trials in-process by evaluating an objective
// function after a simulated training latency. It is the default
// backend and the workhorse for tests.
type LocalExecutor struct {
	objective ObjectiveFunc
	latency   time.Duration

	mu     sync.Mutex
	trials map[Handle]*localTrial
}

type localTrial struct {
	status    models.TrialStatus
	objective float64
	reason    string
}

// BenchmarkObjective is a synthetic objective for local smoke runs:
// the sum of all numeric parameter values
func BenchmarkObjective(assignment space.Assignment) (float64, error) {
	var total float64
	for _, v := range assignment {
		switch n := v.(type) {
		case float64:
			total += n
		case int:
			total += float64(n)
		case int64:
			total += float64(n)
		}
	}
	return total, nil
}

// NewLocalExecutor creates a local executor
func NewLocalExecutor(objective ObjectiveFunc, latency time.Duration) *LocalExecutor {
	return &LocalExecutor{
		objective: objective,
		latency:   latency,
		trials:    make(map[Handle]*localTrial),
	}
}

// Submit starts evaluating the assignment asynchronously
func (e *LocalExecutor) Submit(ctx context.Context, assignment space.Assignment, _ models.ResourceSpec) (Handle, error) {
	handle := Handle(uuid.New().String())

	e.mu.Lock()
	e.trials[handle] = &localTrial{status: models.TrialStatusRunning}
	e.mu.Unlock()

	go e.run(handle, assignment)

	return handle, nil
}

// Poll reports the trial's current state
func (e *LocalExecutor) Poll(_ context.Context, handle Handle) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trials[handle]
	if !ok {
		return Result{}, fmt.Errorf("unknown trial handle %q", handle)
	}

	return Result{Status: t.status, Objective: t.objective, Reason: t.reason}, nil
}

func (e *LocalExecutor) run(handle Handle, assignment space.Assignment) {
	if e.latency > 0 {
		time.Sleep(e.latency)
	}

	value, err := e.objective(assignment)

	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.trials[handle]
	if err != nil {
		t.status = models.TrialStatusFailed
		t.reason = err.Error()
		log.Printf("Local trial %s failed: %v", handle, err)
		return
	}
	t.status = models.TrialStatusCompleted
	t.objective = value
}
