package store

// LearningStyle tags how a learner absorbs material best. Free-form values
// are tolerated on read; unknown styles fall back to generic directives.
type LearningStyle string

const (
	LearningStyleVisual         LearningStyle = "visual"
	LearningStyleAuditory       LearningStyle = "auditory"
	LearningStyleKinesthetic    LearningStyle = "kinesthetic"
	LearningStyleReadingWriting LearningStyle = "reading_writing"
)

// LearnerProfile is the long-lived record of who a learner is.
// Mutated only by the profile enricher or explicit profile edits.
type LearnerProfile struct {
	LearnerID     int32             `json:"learner_id"`
	Name          string            `json:"name"`
	GradeLevel    int               `json:"grade_level"`
	LearningStyle LearningStyle     `json:"learning_style"`
	Strengths     []string          `json:"strengths"` // topic tags, set semantics
	Struggles     []string          `json:"struggles"` // topic tags, set semantics
	Preferences   map[string]string `json:"preferences"`
	UpdatedTs     int64             `json:"updated_ts"`
}

// UpdateLearnerProfile specifies a profile mutation. Strength and struggle
// additions use set-union semantics: re-adding an existing topic is a no-op.
type UpdateLearnerProfile struct {
	LearnerID     int32
	AddStrengths  []string
	AddStruggles  []string
	LearningStyle *string
	Preferences   map[string]string
}

// MergeTopics unions add into existing, preserving existing order and
// appending new topics in the order given. Used by both drivers so the
// set-union semantics live in one place.
func MergeTopics(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(add))
	for _, t := range existing {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	for _, t := range add {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}
