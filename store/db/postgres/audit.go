package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// CreateValidationAudit records one validator outcome.
func (d *DB) CreateValidationAudit(ctx context.Context, create *store.ValidationAudit) error {
	fixes, err := marshalJSON(create.RequiredFixes)
	if err != nil {
		return err
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO validation_audit (session_id, agent_name, outcome, attempt, confidence, required_fixes, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.AgentName, create.Outcome,
		create.Attempt, create.Confidence, fixes, create.CreatedTs); err != nil {
		return fmt.Errorf("failed to create validation audit: %w", err)
	}
	return nil
}

// ListValidationAudits retrieves validation audits, newest-first.
func (d *DB) ListValidationAudits(ctx context.Context, find *store.FindValidationAudit) ([]*store.ValidationAudit, error) {
	query := `SELECT id, session_id, agent_name, outcome, attempt, confidence, required_fixes, created_ts
		FROM validation_audit WHERE 1=1`
	args := []any{}

	if find.SessionID != nil {
		query += fmt.Sprintf(" AND session_id = %s", placeholder(len(args)+1))
		args = append(args, *find.SessionID)
	}
	if find.Outcome != nil {
		query += fmt.Sprintf(" AND outcome = %s", placeholder(len(args)+1))
		args = append(args, *find.Outcome)
	}
	query += " ORDER BY created_ts DESC"
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation audits: %w", err)
	}
	defer rows.Close()

	var audits []*store.ValidationAudit
	for rows.Next() {
		var a store.ValidationAudit
		var fixes string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.AgentName, &a.Outcome, &a.Attempt,
			&a.Confidence, &fixes, &a.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan validation audit: %w", err)
		}
		a.RequiredFixes = unmarshalStrings(fixes)
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}

// CreateTurnLog records the routing/adaptation log for one turn.
func (d *DB) CreateTurnLog(ctx context.Context, create *store.TurnLog) error {
	directives, err := marshalJSON(create.Directives)
	if err != nil {
		return err
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO turn_log (session_id, learner_id, lesson_id, agent_name, route_reason, fast_path, directives, latency_ms, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.LearnerID, create.LessonID,
		create.AgentName, create.RouteReason, create.FastPath, directives, create.LatencyMs, create.CreatedTs); err != nil {
		return fmt.Errorf("failed to create turn log: %w", err)
	}
	return nil
}
