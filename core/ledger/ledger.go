package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// ErrInvariantViolation indicates the trial state machine contract was
// broken. It should never occur in correct operation and is the only
// trial-level error that escalates to a hard job failure.
var ErrInvariantViolation = errors.New("invariant violation")

// TrialLedger is the authoritative, append-only record of every trial
// in a tuning job. Mutation happens only through the controller; other
// components read consistent snapshots.
type TrialLedger struct {
	mu        sync.RWMutex
	direction models.ObjectiveDirection
	jobID     string

	trials []*models.Trial
	byID   map[int]*models.Trial
	keys   map[string]bool
	counts map[models.TrialStatus]int
	best   *models.Trial
	nextID int
}

// New creates an empty ledger ranking objectives by the given direction
func New(jobID string, direction models.ObjectiveDirection) *TrialLedger {
	return &TrialLedger{
		direction: direction,
		jobID:     jobID,
		byID:      make(map[int]*models.Trial),
		keys:      make(map[string]bool),
		counts:    make(map[models.TrialStatus]int),
		nextID:    1,
	}
}

// Append records a new pending trial. Trial ids are assigned in
// admission order and increase monotonically.
func (l *TrialLedger) Append(assignment space.Assignment, key string) *models.Trial {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &models.Trial{
		ID:          l.nextID,
		JobID:       l.jobID,
		Assignment:  assignment,
		Status:      models.TrialStatusPending,
		SubmittedAt: time.Now(),
	}
	l.nextID++

	l.trials = append(l.trials, t)
	l.byID[t.ID] = t
	l.keys[key] = true
	l.counts[models.TrialStatusPending]++

	return t
}

// MarkRunning transitions a pending trial to running
func (l *TrialLedger) MarkRunning(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(id)
	if err != nil {
		return err
	}
	if t.Status != models.TrialStatusPending {
		return fmt.Errorf("%w: trial %d cannot move %s -> running", ErrInvariantViolation, id, t.Status)
	}

	now := time.Now()
	l.transition(t, models.TrialStatusRunning)
	t.StartedAt = &now
	return nil
}

// Complete transitions a running trial to completed and records its
// objective, updating the best trial when strictly better (ties keep
// the earlier completion)
func (l *TrialLedger) Complete(id int, objective float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(id)
	if err != nil {
		return err
	}
	if t.Status != models.TrialStatusRunning {
		return fmt.Errorf("%w: trial %d cannot move %s -> completed", ErrInvariantViolation, id, t.Status)
	}

	now := time.Now()
	l.transition(t, models.TrialStatusCompleted)
	t.Objective = &objective
	t.CompletedAt = &now

	if l.best == nil || l.direction.Better(objective, *l.best.Objective) {
		l.best = t
	}
	return nil
}

// Fail transitions a pending or running trial to failed. Failed trials
// are terminal and never retried.
func (l *TrialLedger) Fail(id int, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(id)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return fmt.Errorf("%w: trial %d cannot move %s -> failed", ErrInvariantViolation, id, t.Status)
	}

	now := time.Now()
	l.transition(t, models.TrialStatusFailed)
	t.FailureReason = reason
	t.CompletedAt = &now
	return nil
}

// Best returns a copy of the best completed trial, or nil when no trial
// has completed
func (l *TrialLedger) Best() *models.Trial {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.best == nil {
		return nil
	}
	best := *l.best
	best.Assignment = best.Assignment.Clone()
	return &best
}

// Len returns the number of recorded trials
func (l *TrialLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trials)
}

// CountStatus returns the number of trials currently in the given status
func (l *TrialLedger) CountStatus(status models.TrialStatus) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[status]
}

// Seen reports whether an assignment key was ever admitted
func (l *TrialLedger) Seen(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keys[key]
}

// Get returns a copy of a trial by id
func (l *TrialLedger) Get(id int) (models.Trial, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.byID[id]
	if !ok {
		return models.Trial{}, false
	}
	out := *t
	out.Assignment = out.Assignment.Clone()
	return out, true
}

// Snapshot returns a consistent copy of all trials in admission order
func (l *TrialLedger) Snapshot() []models.Trial {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Trial, len(l.trials))
	for i, t := range l.trials {
		out[i] = *t
		out[i].Assignment = out[i].Assignment.Clone()
	}
	return out
}

func (l *TrialLedger) get(id int) (*models.Trial, error) {
	t, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown trial %d", ErrInvariantViolation, id)
	}
	return t, nil
}

func (l *TrialLedger) transition(t *models.Trial, to models.TrialStatus) {
	l.counts[t.Status]--
	l.counts[to]++
	t.Status = to
}
