package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// TrialRepository handles database operations for trials
type TrialRepository struct {
	db *DB
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *DB) *TrialRepository {
	return &TrialRepository{db: db}
}

// UpsertTrial writes the current state of a trial
func (r *TrialRepository) UpsertTrial(t models.Trial) error {
	assignment, err := json.Marshal(t.Assignment)
	if err != nil {
		return fmt.Errorf("serializing assignment for trial %d: %w", t.ID, err)
	}

	query := `
		INSERT INTO trials (
			job_id, id, assignment_json, status, objective, failure_reason,
			submitted_at, started_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (job_id, id) DO UPDATE SET
			status = EXCLUDED.status,
			objective = EXCLUDED.objective,
			failure_reason = EXCLUDED.failure_reason,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.Exec(query,
		t.JobID,
		t.ID,
		string(assignment),
		t.Status,
		t.Objective,
		t.FailureReason,
		t.SubmittedAt,
		t.StartedAt,
		t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting trial %d of job %s: %w", t.ID, t.JobID, err)
	}
	return nil
}

// ListTrials returns all stored trials of a job in admission order.
// Assignment values come back as JSON decoded them (numbers as float64).
func (r *TrialRepository) ListTrials(jobID string) ([]*models.Trial, error) {
	query := `
		SELECT job_id, id, assignment_json, status, objective, failure_reason,
			submitted_at, started_at, completed_at
		FROM trials
		WHERE job_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []*models.Trial
	for rows.Next() {
		var t models.Trial
		var assignmentJSON string
		var objective sql.NullFloat64
		var startedAt, completedAt sql.NullTime

		if err := rows.Scan(
			&t.JobID,
			&t.ID,
			&assignmentJSON,
			&t.Status,
			&objective,
			&t.FailureReason,
			&t.SubmittedAt,
			&startedAt,
			&completedAt,
		); err != nil {
			continue
		}

		var assignment space.Assignment
		if err := json.Unmarshal([]byte(assignmentJSON), &assignment); err == nil {
			t.Assignment = assignment
		}

		if objective.Valid {
			t.Objective = &objective.Float64
		}
		if startedAt.Valid {
			t.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}

		trials = append(trials, &t)
	}

	return trials, rows.Err()
}
