package repository

import (
	"database/sql"
	"fmt"
	"time"

	"hypertuner/core/models"
)

// JobRepository handles database operations for tuning jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// UpsertJob writes the current state of a job. The in-memory controller
// is authoritative, so writes replace the stored row wholesale.
func (r *JobRepository) UpsertJob(job models.TuningJob) error {
	query := `
		INSERT INTO tuning_jobs (
			id, name, objective_metric, direction, max_trials, max_parallel,
			strategy, status, exhausted, spec_yaml, created_at, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			exhausted = EXCLUDED.exhausted,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.Name,
		job.ObjectiveMetric,
		job.Direction,
		job.MaxTrials,
		job.MaxParallel,
		job.Strategy,
		job.Status,
		job.Exhausted,
		job.SpecYAML,
		job.CreatedAt,
		job.CompletedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upserting job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a stored job by ID. The parameter space is not
// reconstructed; the original spec YAML is returned for that purpose.
func (r *JobRepository) GetJob(id string) (*models.TuningJob, error) {
	query := `
		SELECT id, name, objective_metric, direction, max_trials, max_parallel,
			strategy, status, exhausted, spec_yaml, created_at, completed_at
		FROM tuning_jobs
		WHERE id = $1
	`

	var job models.TuningJob
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&job.Name,
		&job.ObjectiveMetric,
		&job.Direction,
		&job.MaxTrials,
		&job.MaxParallel,
		&job.Strategy,
		&job.Status,
		&job.Exhausted,
		&job.SpecYAML,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// ListJobs lists stored jobs, newest first, with an optional status filter
func (r *JobRepository) ListJobs(status *models.JobStatus, limit int) ([]*models.TuningJob, error) {
	query := `
		SELECT id, name, strategy, status, max_trials, created_at
		FROM tuning_jobs
	`
	args := []interface{}{}

	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.TuningJob
	for rows.Next() {
		var job models.TuningJob
		if err := rows.Scan(
			&job.ID,
			&job.Name,
			&job.Strategy,
			&job.Status,
			&job.MaxTrials,
			&job.CreatedAt,
		); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// CreateJobEvent records a job status transition
func (r *JobRepository) CreateJobEvent(event models.JobEvent) error {
	query := `
		INSERT INTO job_events (job_id, at, from_status, to_status, reason)
		VALUES ($1, $2, $3, $4, $5)
	`

	var fromStatus *string
	if event.FromStatus != nil {
		s := string(*event.FromStatus)
		fromStatus = &s
	}

	_, err := r.db.Exec(query, event.JobID, event.At, fromStatus, event.ToStatus, event.Reason)
	if err != nil {
		return fmt.Errorf("recording event for job %s: %w", event.JobID, err)
	}
	return nil
}

// GetJobEvents returns the transition trail for a job, oldest first
func (r *JobRepository) GetJobEvents(jobID string, limit int) ([]models.JobEvent, error) {
	query := `
		SELECT id, job_id, at, from_status, to_status, reason
		FROM job_events
		WHERE job_id = $1
		ORDER BY at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(query, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.JobEvent
	for rows.Next() {
		var event models.JobEvent
		var fromStatus sql.NullString
		if err := rows.Scan(&event.ID, &event.JobID, &event.At, &fromStatus, &event.ToStatus, &event.Reason); err != nil {
			continue
		}
		if fromStatus.Valid {
			s := models.JobStatus(fromStatus.String)
			event.FromStatus = &s
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
