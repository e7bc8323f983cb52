package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hypertuner/core/executor"
	"hypertuner/core/models"
	"hypertuner/core/search"
)

// Manager owns the controllers of all tuning jobs in the process
type Manager struct {
	exec executor.TrialExecutor
	opts Options
	seed func() int64

	mu          sync.RWMutex
	controllers map[string]*Controller
	order       []string
}

// NewManager creates a job manager backed by the given executor
func NewManager(exec executor.TrialExecutor, opts Options) *Manager {
	return &Manager{
		exec:        exec,
		opts:        opts,
		seed:        func() int64 { return time.Now().UnixNano() },
		controllers: make(map[string]*Controller),
	}
}

// StartJob validates the job definition, builds its strategy and starts
// the control loop
func (m *Manager) StartJob(ctx context.Context, job *models.TuningJob) (*Controller, error) {
	if job.Space == nil {
		return nil, fmt.Errorf("job requires a parameter space")
	}
	if job.MaxTrials < 1 {
		return nil, fmt.Errorf("max_trials must be at least 1")
	}
	if job.MaxParallel < 1 {
		return nil, fmt.Errorf("max_parallel_jobs must be at least 1")
	}
	if job.Direction != models.DirectionMaximize && job.Direction != models.DirectionMinimize {
		return nil, fmt.Errorf("unknown objective direction %q", job.Direction)
	}

	strategy, err := search.New(job.Strategy, job.Direction, m.seed())
	if err != nil {
		return nil, err
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = models.JobStatusInProgress
	job.CreatedAt = time.Now()

	c := New(job, strategy, m.exec, m.opts)

	m.mu.Lock()
	if _, exists := m.controllers[job.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("job %s already exists", job.ID)
	}
	m.controllers[job.ID] = c
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	go c.Run(ctx)

	return c, nil
}

// Get returns the controller for a job id
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controllers[id]
	return c, ok
}

// List returns all controllers in creation order
func (m *Manager) List() []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Controller, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.controllers[id])
	}
	return out
}

// StopJob requests a graceful stop of a job
func (m *Manager) StopJob(id string) error {
	c, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	c.Stop()
	return nil
}
