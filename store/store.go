package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store/cache"
)

// Store provides database access to all raw objects, with TTL caches in
// front of the read-mostly ones (learner profiles, mastery rule sets).
type Store struct {
	profile *profile.Profile
	driver  Driver

	cacheConfig cache.Config

	learnerProfileCache *cache.Cache // invalidated synchronously by the enricher
	ruleSetCache        *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:              driver,
		profile:             profile,
		cacheConfig:         cacheConfig,
		learnerProfileCache: cache.New(cacheConfig),
		ruleSetCache:        cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.learnerProfileCache.Close()
	s.ruleSetCache.Close()
	return s.driver.Close()
}

// Agent definitions.

func (s *Store) ListAgentDefinitions(ctx context.Context, find *FindAgentDefinition) ([]*AgentDefinition, error) {
	return s.driver.ListAgentDefinitions(ctx, find)
}

func (s *Store) UpsertAgentDefinition(ctx context.Context, upsert *AgentDefinition) (*AgentDefinition, error) {
	return s.driver.UpsertAgentDefinition(ctx, upsert)
}

// Evidence.

func (s *Store) CreateEvidence(ctx context.Context, create *Evidence) (*Evidence, error) {
	return s.driver.CreateEvidence(ctx, create)
}

func (s *Store) ListEvidence(ctx context.Context, find *FindEvidence) ([]*Evidence, error) {
	return s.driver.ListEvidence(ctx, find)
}

// Mastery rule sets. Reads go through the cache; a nil result (unconfigured
// key) is not cached so a later configuration write is visible immediately.

func (s *Store) GetMasteryRuleSet(ctx context.Context, find *FindMasteryRuleSet) (*MasteryRuleSet, error) {
	key := ruleSetCacheKey(find.Subject, find.Grade)
	if v, ok := s.ruleSetCache.Get(key); ok {
		if rs, ok := v.(*MasteryRuleSet); ok {
			return rs, nil
		}
	}

	rs, err := s.driver.GetMasteryRuleSet(ctx, find)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		s.ruleSetCache.Set(key, rs)
	}
	return rs, nil
}

func (s *Store) UpsertMasteryRuleSet(ctx context.Context, upsert *MasteryRuleSet) (*MasteryRuleSet, error) {
	rs, err := s.driver.UpsertMasteryRuleSet(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.ruleSetCache.Delete(ruleSetCacheKey(upsert.Subject, upsert.Grade))
	return rs, nil
}

// Learner profiles.

func (s *Store) GetLearnerProfile(ctx context.Context, learnerID int32) (*LearnerProfile, error) {
	key := learnerProfileCacheKey(learnerID)
	if v, ok := s.learnerProfileCache.Get(key); ok {
		if lp, ok := v.(*LearnerProfile); ok {
			return lp, nil
		}
	}

	lp, err := s.driver.GetLearnerProfile(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if lp != nil {
		s.learnerProfileCache.Set(key, lp)
	}
	return lp, nil
}

func (s *Store) UpsertLearnerProfile(ctx context.Context, upsert *LearnerProfile) (*LearnerProfile, error) {
	lp, err := s.driver.UpsertLearnerProfile(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.InvalidateLearnerProfile(upsert.LearnerID)
	return lp, nil
}

func (s *Store) UpdateLearnerProfile(ctx context.Context, update *UpdateLearnerProfile) (*LearnerProfile, error) {
	lp, err := s.driver.UpdateLearnerProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	s.InvalidateLearnerProfile(update.LearnerID)
	return lp, nil
}

// InvalidateLearnerProfile drops the cached profile so the next read, even
// from a concurrent request for the same learner, sees fresh data or misses.
func (s *Store) InvalidateLearnerProfile(learnerID int32) {
	s.learnerProfileCache.Delete(learnerProfileCacheKey(learnerID))
}

// Routing state.

func (s *Store) GetRoutingState(ctx context.Context, sessionID string) (*RoutingState, error) {
	return s.driver.GetRoutingState(ctx, sessionID)
}

func (s *Store) UpsertRoutingState(ctx context.Context, upsert *RoutingState) (*RoutingState, error) {
	return s.driver.UpsertRoutingState(ctx, upsert)
}

// Sessions.

func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return s.driver.GetSession(ctx, sessionID)
}

func (s *Store) CreateSession(ctx context.Context, create *Session) (*Session, error) {
	return s.driver.CreateSession(ctx, create)
}

func (s *Store) CreateSessionTurn(ctx context.Context, create *SessionTurn) error {
	return s.driver.CreateSessionTurn(ctx, create)
}

func (s *Store) ListSessionTurns(ctx context.Context, find *FindSessionTurn) ([]*SessionTurn, error) {
	return s.driver.ListSessionTurns(ctx, find)
}

// Lessons.

func (s *Store) GetLesson(ctx context.Context, lessonID string) (*Lesson, error) {
	return s.driver.GetLesson(ctx, lessonID)
}

func (s *Store) UpsertLesson(ctx context.Context, upsert *Lesson) (*Lesson, error) {
	return s.driver.UpsertLesson(ctx, upsert)
}

// Audit trails.

func (s *Store) CreateValidationAudit(ctx context.Context, create *ValidationAudit) error {
	return s.driver.CreateValidationAudit(ctx, create)
}

func (s *Store) ListValidationAudits(ctx context.Context, find *FindValidationAudit) ([]*ValidationAudit, error) {
	return s.driver.ListValidationAudits(ctx, find)
}

func (s *Store) CreateTurnLog(ctx context.Context, create *TurnLog) error {
	return s.driver.CreateTurnLog(ctx, create)
}

func ruleSetCacheKey(subject string, grade int) string {
	return fmt.Sprintf("ruleset:%s:%d", subject, grade)
}

func learnerProfileCacheKey(learnerID int32) string {
	return fmt.Sprintf("learner:%d", learnerID)
}
