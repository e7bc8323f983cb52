package repository

import (
	"hypertuner/core/models"
)

// Recorder persists controller state changes to the database. It
// satisfies the controller's Recorder interface.
type Recorder struct {
	jobs   *JobRepository
	trials *TrialRepository
}

// NewRecorder creates a recorder over the given database
func NewRecorder(db *DB) *Recorder {
	return &Recorder{
		jobs:   NewJobRepository(db),
		trials: NewTrialRepository(db),
	}
}

// RecordJob persists the current job state
func (r *Recorder) RecordJob(job models.TuningJob) error {
	return r.jobs.UpsertJob(job)
}

// RecordJobEvent persists a job status transition
func (r *Recorder) RecordJobEvent(event models.JobEvent) error {
	return r.jobs.CreateJobEvent(event)
}

// RecordTrial persists the current trial state
func (r *Recorder) RecordTrial(trial models.Trial) error {
	return r.trials.UpsertTrial(trial)
}
