package models

import (
	"time"

	"hypertuner/core/space"
)

// Trial represents one execution of the training algorithm with a fixed
// hyperparameter assignment
type Trial struct {
	ID            int
	JobID         string
	Assignment    space.Assignment
	Status        TrialStatus
	Objective     *float64
	FailureReason string
	SubmittedAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// TrialStatus represents the current status of a trial
type TrialStatus string

const (
	TrialStatusPending   TrialStatus = "pending"
	TrialStatusRunning   TrialStatus = "running"
	TrialStatusCompleted TrialStatus = "completed"
	TrialStatusFailed    TrialStatus = "failed"
)

// Terminal reports whether the status is a terminal state
func (s TrialStatus) Terminal() bool {
	return s == TrialStatusCompleted || s == TrialStatusFailed
}

// ResourceSpec describes the compute resources a single trial may use.
// The controller passes it through to the executor untouched.
type ResourceSpec struct {
	InstanceType  string
	InstanceCount int
	MaxRuntime    time.Duration
}
