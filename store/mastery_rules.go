package store

import "fmt"

// MasteryRuleSet holds the six teacher-configurable thresholds that decide
// lesson mastery for a (subject, grade) pair.
type MasteryRuleSet struct {
	Subject string `json:"subject"`
	Grade   int    `json:"grade"`

	MinCorrectAnswers      int     `json:"min_correct_answers"`
	MinExplanationQuality  int     `json:"min_explanation_quality"` // 0-100
	MinApplicationAttempts int     `json:"min_application_attempts"`
	MinOverallQuality      int     `json:"min_overall_quality"` // 0-100
	MaxStruggleRatio       float64 `json:"max_struggle_ratio"`  // 0-1
	MinTimeSpentMinutes    int     `json:"min_time_spent_minutes"`

	UpdatedTs int64 `json:"updated_ts"`
}

// DefaultMasteryRuleSet returns the system default thresholds, used whenever
// no rule set is configured for a (subject, grade) key.
func DefaultMasteryRuleSet(subject string, grade int) *MasteryRuleSet {
	return &MasteryRuleSet{
		Subject:                subject,
		Grade:                  grade,
		MinCorrectAnswers:      3,
		MinExplanationQuality:  70,
		MinApplicationAttempts: 2,
		MinOverallQuality:      75,
		MaxStruggleRatio:       0.3,
		MinTimeSpentMinutes:    5,
	}
}

// Validate bounds each threshold to its sane range.
func (r *MasteryRuleSet) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if r.Grade < 0 {
		return fmt.Errorf("grade must be >= 0, got %d", r.Grade)
	}
	if r.MinCorrectAnswers < 0 {
		return fmt.Errorf("min_correct_answers must be >= 0, got %d", r.MinCorrectAnswers)
	}
	if r.MinExplanationQuality < 0 || r.MinExplanationQuality > 100 {
		return fmt.Errorf("min_explanation_quality must be in [0,100], got %d", r.MinExplanationQuality)
	}
	if r.MinApplicationAttempts < 0 {
		return fmt.Errorf("min_application_attempts must be >= 0, got %d", r.MinApplicationAttempts)
	}
	if r.MinOverallQuality < 0 || r.MinOverallQuality > 100 {
		return fmt.Errorf("min_overall_quality must be in [0,100], got %d", r.MinOverallQuality)
	}
	if r.MaxStruggleRatio < 0 || r.MaxStruggleRatio > 1 {
		return fmt.Errorf("max_struggle_ratio must be in [0,1], got %f", r.MaxStruggleRatio)
	}
	if r.MinTimeSpentMinutes < 0 {
		return fmt.Errorf("min_time_spent_minutes must be >= 0, got %d", r.MinTimeSpentMinutes)
	}
	return nil
}

// FindMasteryRuleSet identifies a rule set by its configuration key.
type FindMasteryRuleSet struct {
	Subject string
	Grade   int
}
