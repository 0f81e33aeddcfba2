package store

// EvidenceKind classifies a single observation of learner performance.
type EvidenceKind string

const (
	EvidenceKindCorrectAnswer   EvidenceKind = "correct_answer"
	EvidenceKindIncorrectAnswer EvidenceKind = "incorrect_answer"
	EvidenceKindExplanation     EvidenceKind = "explanation"
	EvidenceKindApplication     EvidenceKind = "application"
	EvidenceKindStruggle        EvidenceKind = "struggle"
)

// ValidEvidenceKind reports whether kind is one of the five known kinds.
func ValidEvidenceKind(kind EvidenceKind) bool {
	switch kind {
	case EvidenceKindCorrectAnswer, EvidenceKindIncorrectAnswer, EvidenceKindExplanation,
		EvidenceKindApplication, EvidenceKindStruggle:
		return true
	}
	return false
}

// Evidence is one recorded observation of learner performance.
// Evidence is append-only: rows are never mutated or deleted.
type Evidence struct {
	ID         string       `json:"id"`
	LearnerID  int32        `json:"learner_id"`
	LessonID   string       `json:"lesson_id"`
	SessionID  string       `json:"session_id"`
	Kind       EvidenceKind `json:"kind"`
	Content    string       `json:"content"`
	Topic      string       `json:"topic"`
	Quality    int          `json:"quality"`    // 0-100
	Confidence float64      `json:"confidence"` // 0-1
	CreatedTs  int64        `json:"created_ts"`
}

// FindEvidence specifies conditions for listing evidence.
type FindEvidence struct {
	LearnerID *int32
	LessonID  *string
	SessionID *string
	// Limit bounds the result set. Results are newest-first when Limit > 0.
	Limit int
}
