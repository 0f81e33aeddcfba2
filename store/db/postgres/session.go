package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// GetSession retrieves a session, or (nil, nil) if absent.
func (d *DB) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	query := `SELECT id, learner_id, lesson_id, started_ts FROM session WHERE id = $1`

	var s store.Session
	err := d.db.QueryRowContext(ctx, query, sessionID).Scan(&s.ID, &s.LearnerID, &s.LessonID, &s.StartedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// CreateSession creates a session record.
func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	if create.StartedTs == 0 {
		create.StartedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO session (id, learner_id, lesson_id, started_ts) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.LearnerID, create.LessonID, create.StartedTs); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return create, nil
}

// CreateSessionTurn appends one turn to the session transcript.
func (d *DB) CreateSessionTurn(ctx context.Context, create *store.SessionTurn) error {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO session_turn (session_id, role, agent_name, content, created_ts)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.Role, create.AgentName,
		create.Content, create.CreatedTs); err != nil {
		return fmt.Errorf("failed to create session turn: %w", err)
	}
	return nil
}

// ListSessionTurns retrieves the most recent turns for a session, oldest-first.
func (d *DB) ListSessionTurns(ctx context.Context, find *store.FindSessionTurn) ([]*store.SessionTurn, error) {
	query := `SELECT id, session_id, role, agent_name, content, created_ts FROM session_turn
		WHERE session_id = $1 ORDER BY id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, find.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session turns: %w", err)
	}
	defer rows.Close()

	var turns []*store.SessionTurn
	for rows.Next() {
		var t store.SessionTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.AgentName, &t.Content, &t.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan session turn: %w", err)
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
