package store

import "context"

// Driver is an interface for the database driver.
type Driver interface {
	// Agent definitions.
	ListAgentDefinitions(ctx context.Context, find *FindAgentDefinition) ([]*AgentDefinition, error)
	UpsertAgentDefinition(ctx context.Context, upsert *AgentDefinition) (*AgentDefinition, error)

	// Evidence. Append-only: there is deliberately no update or delete.
	CreateEvidence(ctx context.Context, create *Evidence) (*Evidence, error)
	ListEvidence(ctx context.Context, find *FindEvidence) ([]*Evidence, error)

	// Mastery rule sets.
	GetMasteryRuleSet(ctx context.Context, find *FindMasteryRuleSet) (*MasteryRuleSet, error)
	UpsertMasteryRuleSet(ctx context.Context, upsert *MasteryRuleSet) (*MasteryRuleSet, error)

	// Learner profiles.
	GetLearnerProfile(ctx context.Context, learnerID int32) (*LearnerProfile, error)
	UpsertLearnerProfile(ctx context.Context, profile *LearnerProfile) (*LearnerProfile, error)
	UpdateLearnerProfile(ctx context.Context, update *UpdateLearnerProfile) (*LearnerProfile, error)

	// Routing state.
	GetRoutingState(ctx context.Context, sessionID string) (*RoutingState, error)
	UpsertRoutingState(ctx context.Context, upsert *RoutingState) (*RoutingState, error)

	// Sessions.
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	CreateSession(ctx context.Context, create *Session) (*Session, error)
	CreateSessionTurn(ctx context.Context, create *SessionTurn) error
	ListSessionTurns(ctx context.Context, find *FindSessionTurn) ([]*SessionTurn, error)

	// Lessons (read-only metadata).
	GetLesson(ctx context.Context, lessonID string) (*Lesson, error)
	UpsertLesson(ctx context.Context, upsert *Lesson) (*Lesson, error)

	// Audit trails.
	CreateValidationAudit(ctx context.Context, create *ValidationAudit) error
	ListValidationAudits(ctx context.Context, find *FindValidationAudit) ([]*ValidationAudit, error)
	CreateTurnLog(ctx context.Context, create *TurnLog) error

	Migrate(ctx context.Context) error
	Close() error
}
