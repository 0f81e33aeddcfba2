package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// GetMasteryRuleSet retrieves the rule set for a (subject, grade) key, or
// (nil, nil) when unconfigured.
func (d *DB) GetMasteryRuleSet(ctx context.Context, find *store.FindMasteryRuleSet) (*store.MasteryRuleSet, error) {
	query := `SELECT subject, grade, min_correct_answers, min_explanation_quality, min_application_attempts,
		min_overall_quality, max_struggle_ratio, min_time_spent_minutes, updated_ts
		FROM mastery_rule_set WHERE subject = ? AND grade = ?`

	var rs store.MasteryRuleSet
	err := d.db.QueryRowContext(ctx, query, find.Subject, find.Grade).Scan(
		&rs.Subject, &rs.Grade, &rs.MinCorrectAnswers, &rs.MinExplanationQuality,
		&rs.MinApplicationAttempts, &rs.MinOverallQuality, &rs.MaxStruggleRatio,
		&rs.MinTimeSpentMinutes, &rs.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery rule set: %w", err)
	}
	return &rs, nil
}

// UpsertMasteryRuleSet creates or replaces the rule set for its key.
func (d *DB) UpsertMasteryRuleSet(ctx context.Context, upsert *store.MasteryRuleSet) (*store.MasteryRuleSet, error) {
	upsert.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO mastery_rule_set (subject, grade, min_correct_answers, min_explanation_quality,
			min_application_attempts, min_overall_quality, max_struggle_ratio, min_time_spent_minutes, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject, grade) DO UPDATE SET
			min_correct_answers = excluded.min_correct_answers,
			min_explanation_quality = excluded.min_explanation_quality,
			min_application_attempts = excluded.min_application_attempts,
			min_overall_quality = excluded.min_overall_quality,
			max_struggle_ratio = excluded.max_struggle_ratio,
			min_time_spent_minutes = excluded.min_time_spent_minutes,
			updated_ts = excluded.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt, upsert.Subject, upsert.Grade, upsert.MinCorrectAnswers,
		upsert.MinExplanationQuality, upsert.MinApplicationAttempts, upsert.MinOverallQuality,
		upsert.MaxStruggleRatio, upsert.MinTimeSpentMinutes, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert mastery rule set: %w", err)
	}
	return upsert, nil
}
