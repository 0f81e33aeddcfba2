// Package mastery decides whether a learner has mastered a lesson.
//
// The decision is deterministic: accumulated evidence is reduced to six
// statistics, each compared against a configured threshold, and mastery
// holds only when every comparison passes. No model is consulted, so the
// reported confidence is always 1.0.
package mastery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentora/mentora/store"
)

// EvidenceSummary holds the statistics the six criteria compare against.
type EvidenceSummary struct {
	TotalEvidence          int     `json:"total_evidence"`
	CorrectAnswers         int     `json:"correct_answers"`
	IncorrectAnswers       int     `json:"incorrect_answers"`
	ExplanationCount       int     `json:"explanation_count"`
	AvgExplanationQuality  float64 `json:"avg_explanation_quality"`
	ApplicationCount       int     `json:"application_count"`
	AvgOverallQuality      float64 `json:"avg_overall_quality"`
	StruggleRatio          float64 `json:"struggle_ratio"`
	TimeSpentMinutes       float64 `json:"time_spent_minutes"`
}

// CriteriaMet reports each criterion's outcome by name.
type CriteriaMet struct {
	EnoughCorrectAnswers  bool `json:"enough_correct_answers"`
	ExplanationQuality    bool `json:"explanation_quality"`
	EnoughApplications    bool `json:"enough_applications"`
	OverallQuality        bool `json:"overall_quality"`
	StruggleRatioInBounds bool `json:"struggle_ratio_in_bounds"`
	EnoughTimeSpent       bool `json:"enough_time_spent"`
}

// All reports whether every criterion passed.
func (c CriteriaMet) All() bool {
	return c.EnoughCorrectAnswers &&
		c.ExplanationQuality &&
		c.EnoughApplications &&
		c.OverallQuality &&
		c.StruggleRatioInBounds &&
		c.EnoughTimeSpent
}

// Determination is the full mastery decision with rationale.
type Determination struct {
	HasMastered bool                  `json:"has_mastered"`
	CriteriaMet CriteriaMet           `json:"criteria_met"`
	Summary     EvidenceSummary       `json:"evidence_summary"`
	Rules       *store.MasteryRuleSet `json:"rules_applied"`

	// Confidence is always 1.0: the decision is computed from stored
	// evidence, not guessed by a model.
	Confidence float64 `json:"confidence"`
}

// Summarize reduces evidence to the statistics the criteria need.
// Evidence with zero records of a kind yields a zero statistic for that
// kind, so an absent explanation record can never satisfy an explanation
// quality threshold.
func Summarize(evidence []*store.Evidence, now, sessionStart time.Time) EvidenceSummary {
	sum := EvidenceSummary{TotalEvidence: len(evidence)}

	explanationQuality := 0
	overallQuality := 0
	struggles := 0
	for _, ev := range evidence {
		overallQuality += ev.Quality
		switch ev.Kind {
		case store.EvidenceKindCorrectAnswer:
			sum.CorrectAnswers++
		case store.EvidenceKindIncorrectAnswer:
			sum.IncorrectAnswers++
		case store.EvidenceKindExplanation:
			sum.ExplanationCount++
			explanationQuality += ev.Quality
		case store.EvidenceKindApplication:
			sum.ApplicationCount++
		case store.EvidenceKindStruggle:
			struggles++
		}
	}

	if sum.ExplanationCount > 0 {
		sum.AvgExplanationQuality = float64(explanationQuality) / float64(sum.ExplanationCount)
	}
	if sum.TotalEvidence > 0 {
		sum.AvgOverallQuality = float64(overallQuality) / float64(sum.TotalEvidence)
		sum.StruggleRatio = float64(struggles) / float64(sum.TotalEvidence)
	}
	if now.After(sessionStart) {
		sum.TimeSpentMinutes = now.Sub(sessionStart).Minutes()
	}
	return sum
}

// Evaluate applies a rule set to a summary. Pure function.
func Evaluate(sum EvidenceSummary, rules *store.MasteryRuleSet) *Determination {
	criteria := CriteriaMet{
		EnoughCorrectAnswers:  sum.CorrectAnswers >= rules.MinCorrectAnswers,
		ExplanationQuality:    sum.AvgExplanationQuality >= float64(rules.MinExplanationQuality),
		EnoughApplications:    sum.ApplicationCount >= rules.MinApplicationAttempts,
		OverallQuality:        sum.AvgOverallQuality >= float64(rules.MinOverallQuality),
		StruggleRatioInBounds: sum.StruggleRatio <= rules.MaxStruggleRatio,
		EnoughTimeSpent:       sum.TimeSpentMinutes >= float64(rules.MinTimeSpentMinutes),
	}
	return &Determination{
		HasMastered: criteria.All(),
		CriteriaMet: criteria,
		Summary:     sum,
		Rules:       rules,
		Confidence:  1.0,
	}
}

// Score collapses a summary into a single 0-100 mastery score for directive
// generation. Weighted blend of correctness, quality, and struggle absence.
func Score(sum EvidenceSummary) int {
	if sum.TotalEvidence == 0 {
		return 0
	}

	answered := sum.CorrectAnswers + sum.IncorrectAnswers
	correctness := 0.0
	if answered > 0 {
		correctness = float64(sum.CorrectAnswers) / float64(answered)
	}
	quality := sum.AvgOverallQuality / 100
	calm := 1 - sum.StruggleRatio

	score := int((correctness*0.4 + quality*0.4 + calm*0.2) * 100)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Engine loads evidence and rules from storage and evaluates mastery.
type Engine struct {
	store *store.Store
}

// NewEngine creates a mastery Engine.
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// DetermineMastery evaluates mastery for a learner on a lesson. Read and
// compute only, no writes: calling it twice with unchanged evidence yields
// identical output.
func (e *Engine) DetermineMastery(ctx context.Context, learnerID int32, lessonID, subject string, grade int, sessionStart time.Time) (*Determination, error) {
	evidence, err := e.store.ListEvidence(ctx, &store.FindEvidence{
		LearnerID: &learnerID,
		LessonID:  &lessonID,
	})
	if err != nil {
		return nil, fmt.Errorf("mastery: list evidence: %w", err)
	}

	rules, err := e.store.GetMasteryRuleSet(ctx, &store.FindMasteryRuleSet{Subject: subject, Grade: grade})
	if err != nil {
		return nil, fmt.Errorf("mastery: load rule set: %w", err)
	}
	if rules == nil {
		rules = store.DefaultMasteryRuleSet(subject, grade)
		slog.Debug("mastery: no configured rule set, using defaults", "subject", subject, "grade", grade)
	}

	det := Evaluate(Summarize(evidence, time.Now(), sessionStart), rules)
	slog.Debug("mastery: determination",
		"learner_id", learnerID, "lesson_id", lessonID,
		"has_mastered", det.HasMastered, "evidence_count", det.Summary.TotalEvidence)
	return det, nil
}
