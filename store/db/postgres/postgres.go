package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// DB is the PostgreSQL implementation of store.Driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply migration")
		}
	}
	return nil
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS agent_definition (
		name TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		prompt_template TEXT NOT NULL DEFAULT '',
		reasoning_effort TEXT NOT NULL DEFAULT 'medium',
		tool_access BOOLEAN NOT NULL DEFAULT FALSE,
		web_search BOOLEAN NOT NULL DEFAULT FALSE,
		capabilities TEXT NOT NULL DEFAULT '[]',
		updated_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS evidence (
		id TEXT PRIMARY KEY,
		learner_id INTEGER NOT NULL,
		lesson_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		quality INTEGER NOT NULL DEFAULT 0,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_learner_lesson ON evidence (learner_id, lesson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_session ON evidence (session_id)`,
	`CREATE TABLE IF NOT EXISTS mastery_rule_set (
		subject TEXT NOT NULL,
		grade INTEGER NOT NULL,
		min_correct_answers INTEGER NOT NULL,
		min_explanation_quality INTEGER NOT NULL,
		min_application_attempts INTEGER NOT NULL,
		min_overall_quality INTEGER NOT NULL,
		max_struggle_ratio DOUBLE PRECISION NOT NULL,
		min_time_spent_minutes INTEGER NOT NULL,
		updated_ts BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (subject, grade)
	)`,
	`CREATE TABLE IF NOT EXISTS learner_profile (
		learner_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		grade_level INTEGER NOT NULL DEFAULT 0,
		learning_style TEXT NOT NULL DEFAULT '',
		strengths TEXT NOT NULL DEFAULT '[]',
		struggles TEXT NOT NULL DEFAULT '[]',
		preferences TEXT NOT NULL DEFAULT '{}',
		updated_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS routing_state (
		session_id TEXT PRIMARY KEY,
		active_agent TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		updated_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS session (
		id TEXT PRIMARY KEY,
		learner_id INTEGER NOT NULL,
		lesson_id TEXT NOT NULL,
		started_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS session_turn (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		agent_name TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_turn_session ON session_turn (session_id, created_ts)`,
	`CREATE TABLE IF NOT EXISTS lesson (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		grade INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		objectives TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS validation_audit (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		required_fixes TEXT NOT NULL DEFAULT '[]',
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS turn_log (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		learner_id INTEGER NOT NULL,
		lesson_id TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		route_reason TEXT NOT NULL DEFAULT '',
		fast_path BOOLEAN NOT NULL DEFAULT FALSE,
		directives TEXT NOT NULL DEFAULT '[]',
		latency_ms BIGINT NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
}

// placeholder returns the PostgreSQL positional placeholder for index n (1-based).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json column: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func unmarshalStringMap(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
