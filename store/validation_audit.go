package store

// Validation outcomes recorded for later review.
const (
	ValidationOutcomeApproved      = "approved"
	ValidationOutcomeRejectedRetry = "rejected_retry"
	ValidationOutcomeRejectedFinal = "rejected_final"
	ValidationOutcomeTimedOut      = "timed_out"
)

// ValidationAudit records one validator outcome. Timeouts are delivered to
// the learner as approvals but still audited here.
type ValidationAudit struct {
	ID            int64    `json:"id"`
	SessionID     string   `json:"session_id"`
	AgentName     string   `json:"agent_name"`
	Outcome       string   `json:"outcome"`
	Attempt       int      `json:"attempt"`
	Confidence    float64  `json:"confidence"`
	RequiredFixes []string `json:"required_fixes,omitempty"`
	CreatedTs     int64    `json:"created_ts"`
}

// FindValidationAudit specifies conditions for listing validation audits.
type FindValidationAudit struct {
	SessionID *string
	Outcome   *string
	Limit     int
}

// TurnLog is the routing/adaptation log row written after each turn by a
// background task. It never blocks the learner-facing response.
type TurnLog struct {
	ID          int64    `json:"id"`
	SessionID   string   `json:"session_id"`
	LearnerID   int32    `json:"learner_id"`
	LessonID    string   `json:"lesson_id"`
	AgentName   string   `json:"agent_name"`
	RouteReason string   `json:"route_reason"`
	FastPath    bool     `json:"fast_path"`
	Directives  []string `json:"directives,omitempty"`
	LatencyMs   int64    `json:"latency_ms"`
	CreatedTs   int64    `json:"created_ts"`
}
