package models

import (
	"time"

	"hypertuner/core/space"
)

// TuningJob represents a hyperparameter tuning run submitted to the platform
type TuningJob struct {
	ID              string
	Name            string
	Space           *space.ParameterSpace
	ObjectiveMetric string
	Direction       ObjectiveDirection
	MaxTrials       int
	MaxParallel     int
	Strategy        StrategyName
	Resources       ResourceSpec
	Status          JobStatus
	// Exhausted is set when the strategy ran out of distinct candidates
	// before the trial budget was consumed.
	Exhausted   bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	SpecYAML    string // Original spec for replay/debug
}

// JobStatus represents the current status of a tuning job
type JobStatus string

const (
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusStopped    JobStatus = "stopped"
	// JobStatusFailed is reserved for invariant violations; trial-level
	// failures never put the job here.
	JobStatusFailed JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusStopped || s == JobStatusFailed
}

// ObjectiveDirection determines whether larger or smaller objective
// values rank better
type ObjectiveDirection string

const (
	DirectionMaximize ObjectiveDirection = "maximize"
	DirectionMinimize ObjectiveDirection = "minimize"
)

// Better reports whether objective a beats objective b under the direction
func (d ObjectiveDirection) Better(a, b float64) bool {
	if d == DirectionMinimize {
		return a < b
	}
	return a > b
}

// StrategyName identifies a search strategy
type StrategyName string

const (
	StrategyRandom   StrategyName = "random"
	StrategyGrid     StrategyName = "grid"
	StrategyBayesian StrategyName = "bayesian"
)
