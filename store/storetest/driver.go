// Package storetest provides an in-memory store.Driver for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentora/mentora/store"
)

// Driver is an in-memory store.Driver. Safe for concurrent use.
type Driver struct {
	mu sync.Mutex

	agents   map[string]*store.AgentDefinition
	evidence []*store.Evidence
	rules    map[string]*store.MasteryRuleSet
	profiles map[int32]*store.LearnerProfile
	routing  map[string]*store.RoutingState
	sessions map[string]*store.Session
	turns    []*store.SessionTurn
	lessons  map[string]*store.Lesson
	audits   []*store.ValidationAudit
	turnLogs []*store.TurnLog

	nextTurnID  int64
	nextAuditID int64
}

var _ store.Driver = (*Driver)(nil)

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		agents:   map[string]*store.AgentDefinition{},
		rules:    map[string]*store.MasteryRuleSet{},
		profiles: map[int32]*store.LearnerProfile{},
		routing:  map[string]*store.RoutingState{},
		sessions: map[string]*store.Session{},
		lessons:  map[string]*store.Lesson{},
	}
}

// NewStore wraps a fresh driver in a caching Store.
func NewStore() (*store.Store, *Driver) {
	d := New()
	return store.New(d, nil), d
}

func (d *Driver) ListAgentDefinitions(_ context.Context, find *store.FindAgentDefinition) ([]*store.AgentDefinition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.AgentDefinition
	for _, def := range d.agents {
		if find.Name != nil && def.Name != *find.Name {
			continue
		}
		if find.Role != nil && def.Role != *find.Role {
			continue
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Driver) UpsertAgentDefinition(_ context.Context, upsert *store.AgentDefinition) (*store.AgentDefinition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *upsert
	cp.UpdatedTs = time.Now().Unix()
	d.agents[cp.Name] = &cp
	return &cp, nil
}

func (d *Driver) CreateEvidence(_ context.Context, create *store.Evidence) (*store.Evidence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *create
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedTs == 0 {
		cp.CreatedTs = time.Now().Unix()
	}
	d.evidence = append(d.evidence, &cp)
	return &cp, nil
}

func (d *Driver) ListEvidence(_ context.Context, find *store.FindEvidence) ([]*store.Evidence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Evidence
	for _, ev := range d.evidence {
		if find.LearnerID != nil && ev.LearnerID != *find.LearnerID {
			continue
		}
		if find.LessonID != nil && ev.LessonID != *find.LessonID {
			continue
		}
		if find.SessionID != nil && ev.SessionID != *find.SessionID {
			continue
		}
		out = append(out, ev)
	}
	if find.Limit > 0 {
		// Newest first, mirroring the SQL drivers.
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		if len(out) > find.Limit {
			out = out[:find.Limit]
		}
	}
	return out, nil
}

func ruleKey(subject string, grade int) string {
	return fmt.Sprintf("%s:%d", subject, grade)
}

func (d *Driver) GetMasteryRuleSet(_ context.Context, find *store.FindMasteryRuleSet) (*store.MasteryRuleSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rules[ruleKey(find.Subject, find.Grade)], nil
}

func (d *Driver) UpsertMasteryRuleSet(_ context.Context, upsert *store.MasteryRuleSet) (*store.MasteryRuleSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *upsert
	cp.UpdatedTs = time.Now().Unix()
	d.rules[ruleKey(cp.Subject, cp.Grade)] = &cp
	return &cp, nil
}

func (d *Driver) GetLearnerProfile(_ context.Context, learnerID int32) (*store.LearnerProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profiles[learnerID], nil
}

func (d *Driver) UpsertLearnerProfile(_ context.Context, profile *store.LearnerProfile) (*store.LearnerProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *profile
	cp.UpdatedTs = time.Now().Unix()
	d.profiles[cp.LearnerID] = &cp
	return &cp, nil
}

func (d *Driver) UpdateLearnerProfile(_ context.Context, update *store.UpdateLearnerProfile) (*store.LearnerProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing := d.profiles[update.LearnerID]
	if existing == nil {
		existing = &store.LearnerProfile{LearnerID: update.LearnerID}
	}
	cp := *existing
	cp.Strengths = store.MergeTopics(cp.Strengths, update.AddStrengths)
	cp.Struggles = store.MergeTopics(cp.Struggles, update.AddStruggles)
	if update.LearningStyle != nil {
		cp.LearningStyle = store.LearningStyle(*update.LearningStyle)
	}
	if update.Preferences != nil {
		cp.Preferences = update.Preferences
	}
	cp.UpdatedTs = time.Now().Unix()
	d.profiles[update.LearnerID] = &cp
	return &cp, nil
}

func (d *Driver) GetRoutingState(_ context.Context, sessionID string) (*store.RoutingState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.routing[sessionID], nil
}

func (d *Driver) UpsertRoutingState(_ context.Context, upsert *store.RoutingState) (*store.RoutingState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *upsert
	cp.UpdatedTs = time.Now().Unix()
	d.routing[cp.SessionID] = &cp
	return &cp, nil
}

func (d *Driver) GetSession(_ context.Context, sessionID string) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[sessionID], nil
}

func (d *Driver) CreateSession(_ context.Context, create *store.Session) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *create
	if cp.StartedTs == 0 {
		cp.StartedTs = time.Now().Unix()
	}
	d.sessions[cp.ID] = &cp
	return &cp, nil
}

func (d *Driver) CreateSessionTurn(_ context.Context, create *store.SessionTurn) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *create
	d.nextTurnID++
	cp.ID = d.nextTurnID
	if cp.CreatedTs == 0 {
		cp.CreatedTs = time.Now().Unix()
	}
	d.turns = append(d.turns, &cp)
	return nil
}

func (d *Driver) ListSessionTurns(_ context.Context, find *store.FindSessionTurn) ([]*store.SessionTurn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.SessionTurn
	for _, t := range d.turns {
		if t.SessionID == find.SessionID {
			out = append(out, t)
		}
	}
	if find.Limit > 0 && len(out) > find.Limit {
		out = out[len(out)-find.Limit:]
	}
	return out, nil
}

func (d *Driver) GetLesson(_ context.Context, lessonID string) (*store.Lesson, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lessons[lessonID], nil
}

func (d *Driver) UpsertLesson(_ context.Context, upsert *store.Lesson) (*store.Lesson, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *upsert
	d.lessons[cp.ID] = &cp
	return &cp, nil
}

func (d *Driver) CreateValidationAudit(_ context.Context, create *store.ValidationAudit) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *create
	d.nextAuditID++
	cp.ID = d.nextAuditID
	if cp.CreatedTs == 0 {
		cp.CreatedTs = time.Now().Unix()
	}
	d.audits = append(d.audits, &cp)
	return nil
}

func (d *Driver) ListValidationAudits(_ context.Context, find *store.FindValidationAudit) ([]*store.ValidationAudit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.ValidationAudit
	for _, a := range d.audits {
		if find.SessionID != nil && a.SessionID != *find.SessionID {
			continue
		}
		if find.Outcome != nil && a.Outcome != *find.Outcome {
			continue
		}
		out = append(out, a)
	}
	if find.Limit > 0 && len(out) > find.Limit {
		out = out[len(out)-find.Limit:]
	}
	return out, nil
}

func (d *Driver) CreateTurnLog(_ context.Context, create *store.TurnLog) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *create
	cp.ID = int64(len(d.turnLogs) + 1)
	if cp.CreatedTs == 0 {
		cp.CreatedTs = time.Now().Unix()
	}
	d.turnLogs = append(d.turnLogs, &cp)
	return nil
}

// TurnLogs returns a copy of the recorded turn logs for assertions.
func (d *Driver) TurnLogs() []*store.TurnLog {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*store.TurnLog(nil), d.turnLogs...)
}

// Audits returns a copy of the recorded validation audits for assertions.
func (d *Driver) Audits() []*store.ValidationAudit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*store.ValidationAudit(nil), d.audits...)
}

func (d *Driver) Migrate(_ context.Context) error { return nil }
func (d *Driver) Close() error                    { return nil }
