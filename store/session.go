package store

// Session is one tutoring sitting for a learner on a lesson.
type Session struct {
	ID        string `json:"id"`
	LearnerID int32  `json:"learner_id"`
	LessonID  string `json:"lesson_id"`
	StartedTs int64  `json:"started_ts"`
}

// Session turn roles.
const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// SessionTurn is one utterance in a session, from either side.
type SessionTurn struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"` // user, assistant
	AgentName string `json:"agent_name,omitempty"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"created_ts"`
}

// FindSessionTurn specifies conditions for listing session turns.
type FindSessionTurn struct {
	SessionID string
	// Limit bounds the result to the most recent turns, returned oldest-first.
	Limit int
}
