package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// GetRoutingState retrieves the routing state for a session, or (nil, nil)
// when the session has no active specialist yet.
func (d *DB) GetRoutingState(ctx context.Context, sessionID string) (*store.RoutingState, error) {
	query := `SELECT session_id, active_agent, reason, updated_ts FROM routing_state WHERE session_id = ?`

	var rs store.RoutingState
	err := d.db.QueryRowContext(ctx, query, sessionID).Scan(&rs.SessionID, &rs.ActiveAgent, &rs.Reason, &rs.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routing state: %w", err)
	}
	return &rs, nil
}

// UpsertRoutingState persists the current specialist choice, last writer wins.
func (d *DB) UpsertRoutingState(ctx context.Context, upsert *store.RoutingState) (*store.RoutingState, error) {
	upsert.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO routing_state (session_id, active_agent, reason, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			active_agent = excluded.active_agent,
			reason = excluded.reason,
			updated_ts = excluded.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt, upsert.SessionID, upsert.ActiveAgent, upsert.Reason, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert routing state: %w", err)
	}
	return upsert, nil
}
