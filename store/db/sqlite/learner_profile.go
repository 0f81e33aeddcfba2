package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// GetLearnerProfile retrieves a learner profile, or (nil, nil) if absent.
func (d *DB) GetLearnerProfile(ctx context.Context, learnerID int32) (*store.LearnerProfile, error) {
	query := `SELECT learner_id, name, grade_level, learning_style, strengths, struggles, preferences, updated_ts
		FROM learner_profile WHERE learner_id = ?`

	var lp store.LearnerProfile
	var strengths, struggles, preferences string
	err := d.db.QueryRowContext(ctx, query, learnerID).Scan(&lp.LearnerID, &lp.Name, &lp.GradeLevel,
		&lp.LearningStyle, &strengths, &struggles, &preferences, &lp.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner profile: %w", err)
	}

	lp.Strengths = unmarshalStrings(strengths)
	lp.Struggles = unmarshalStrings(struggles)
	lp.Preferences = unmarshalStringMap(preferences)
	return &lp, nil
}

// UpsertLearnerProfile creates or replaces a learner profile wholesale.
func (d *DB) UpsertLearnerProfile(ctx context.Context, profile *store.LearnerProfile) (*store.LearnerProfile, error) {
	strengths, err := marshalJSON(profile.Strengths)
	if err != nil {
		return nil, err
	}
	struggles, err := marshalJSON(profile.Struggles)
	if err != nil {
		return nil, err
	}
	preferences, err := marshalJSON(profile.Preferences)
	if err != nil {
		return nil, err
	}
	profile.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO learner_profile (learner_id, name, grade_level, learning_style, strengths, struggles, preferences, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (learner_id) DO UPDATE SET
			name = excluded.name,
			grade_level = excluded.grade_level,
			learning_style = excluded.learning_style,
			strengths = excluded.strengths,
			struggles = excluded.struggles,
			preferences = excluded.preferences,
			updated_ts = excluded.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt, profile.LearnerID, profile.Name, profile.GradeLevel,
		profile.LearningStyle, strengths, struggles, preferences, profile.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert learner profile: %w", err)
	}
	return profile, nil
}

// UpdateLearnerProfile applies a partial mutation with set-union semantics
// for strength/struggle additions, so re-applying the same update is
// idempotent.
func (d *DB) UpdateLearnerProfile(ctx context.Context, update *store.UpdateLearnerProfile) (*store.LearnerProfile, error) {
	existing, err := d.GetLearnerProfile(ctx, update.LearnerID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		existing = &store.LearnerProfile{LearnerID: update.LearnerID}
	}

	existing.Strengths = store.MergeTopics(existing.Strengths, update.AddStrengths)
	existing.Struggles = store.MergeTopics(existing.Struggles, update.AddStruggles)
	if update.LearningStyle != nil {
		existing.LearningStyle = store.LearningStyle(*update.LearningStyle)
	}
	if update.Preferences != nil {
		if existing.Preferences == nil {
			existing.Preferences = make(map[string]string, len(update.Preferences))
		}
		for k, v := range update.Preferences {
			existing.Preferences[k] = v
		}
	}

	return d.UpsertLearnerProfile(ctx, existing)
}
