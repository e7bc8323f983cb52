package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection and verifies it
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{DB: db}, nil
}

// EnsureSchema creates the tables used by the recorder if they do not exist
func (db *DB) EnsureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tuning_jobs (
			id               UUID PRIMARY KEY,
			name             TEXT NOT NULL,
			objective_metric TEXT NOT NULL,
			direction        TEXT NOT NULL,
			max_trials       INT NOT NULL,
			max_parallel     INT NOT NULL,
			strategy         TEXT NOT NULL,
			status           TEXT NOT NULL,
			exhausted        BOOLEAN NOT NULL DEFAULT FALSE,
			spec_yaml        TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL,
			completed_at     TIMESTAMPTZ,
			updated_at       TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trials (
			job_id          UUID NOT NULL REFERENCES tuning_jobs(id),
			id              INT NOT NULL,
			assignment_json TEXT NOT NULL,
			status          TEXT NOT NULL,
			objective       DOUBLE PRECISION,
			failure_reason  TEXT NOT NULL DEFAULT '',
			submitted_at    TIMESTAMPTZ NOT NULL,
			started_at      TIMESTAMPTZ,
			completed_at    TIMESTAMPTZ,
			PRIMARY KEY (job_id, id)
		);

		CREATE TABLE IF NOT EXISTS job_events (
			id          BIGSERIAL PRIMARY KEY,
			job_id      UUID NOT NULL,
			at          TIMESTAMPTZ NOT NULL,
			from_status TEXT,
			to_status   TEXT NOT NULL,
			reason      TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
