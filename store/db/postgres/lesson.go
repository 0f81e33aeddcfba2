package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mentora/mentora/store"
)

// GetLesson retrieves lesson metadata, or (nil, nil) if absent.
func (d *DB) GetLesson(ctx context.Context, lessonID string) (*store.Lesson, error) {
	query := `SELECT id, subject, grade, title, objectives FROM lesson WHERE id = $1`

	var l store.Lesson
	var objectives string
	err := d.db.QueryRowContext(ctx, query, lessonID).Scan(&l.ID, &l.Subject, &l.Grade, &l.Title, &objectives)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	l.Objectives = unmarshalStrings(objectives)
	return &l, nil
}

// UpsertLesson creates or replaces lesson metadata.
func (d *DB) UpsertLesson(ctx context.Context, upsert *store.Lesson) (*store.Lesson, error) {
	objectives, err := marshalJSON(upsert.Objectives)
	if err != nil {
		return nil, err
	}

	stmt := `INSERT INTO lesson (id, subject, grade, title, objectives) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			grade = EXCLUDED.grade,
			title = EXCLUDED.title,
			objectives = EXCLUDED.objectives`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ID, upsert.Subject, upsert.Grade, upsert.Title, objectives); err != nil {
		return nil, fmt.Errorf("failed to upsert lesson: %w", err)
	}
	return upsert, nil
}
