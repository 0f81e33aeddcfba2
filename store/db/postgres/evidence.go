package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mentora/mentora/store"
)

// CreateEvidence appends one evidence record. Evidence is never updated.
func (d *DB) CreateEvidence(ctx context.Context, create *store.Evidence) (*store.Evidence, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO evidence (id, learner_id, lesson_id, session_id, kind, content, topic, quality, confidence, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.LearnerID, create.LessonID,
		create.SessionID, string(create.Kind), create.Content, create.Topic,
		create.Quality, create.Confidence, create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create evidence: %w", err)
	}
	return create, nil
}

// ListEvidence retrieves evidence records. Oldest-first without a limit,
// newest-first when a limit is set (recent-window reads).
func (d *DB) ListEvidence(ctx context.Context, find *store.FindEvidence) ([]*store.Evidence, error) {
	query := `SELECT id, learner_id, lesson_id, session_id, kind, content, topic, quality, confidence, created_ts
		FROM evidence WHERE 1=1`
	args := []any{}

	if find.LearnerID != nil {
		query += fmt.Sprintf(" AND learner_id = %s", placeholder(len(args)+1))
		args = append(args, *find.LearnerID)
	}
	if find.LessonID != nil {
		query += fmt.Sprintf(" AND lesson_id = %s", placeholder(len(args)+1))
		args = append(args, *find.LessonID)
	}
	if find.SessionID != nil {
		query += fmt.Sprintf(" AND session_id = %s", placeholder(len(args)+1))
		args = append(args, *find.SessionID)
	}

	if find.Limit > 0 {
		query += fmt.Sprintf(" ORDER BY created_ts DESC LIMIT %d", find.Limit)
	} else {
		query += " ORDER BY created_ts ASC"
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var list []*store.Evidence
	for rows.Next() {
		var ev store.Evidence
		if err := rows.Scan(&ev.ID, &ev.LearnerID, &ev.LessonID, &ev.SessionID, &ev.Kind,
			&ev.Content, &ev.Topic, &ev.Quality, &ev.Confidence, &ev.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
