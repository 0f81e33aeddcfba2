// Package orchestrator sequences one learner turn end to end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/agent/registry"
	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/directive"
	"github.com/mentora/mentora/ai/enrichment"
	"github.com/mentora/mentora/ai/evidence"
	"github.com/mentora/mentora/ai/gen"
	"github.com/mentora/mentora/ai/mastery"
	"github.com/mentora/mentora/ai/metrics"
	"github.com/mentora/mentora/ai/promptcache"
	"github.com/mentora/mentora/ai/routing"
	"github.com/mentora/mentora/ai/validator"
	"github.com/mentora/mentora/store"
)

// TurnRequest is one learner utterance entering the pipeline.
type TurnRequest struct {
	LearnerID int32  `json:"learner_id"`
	SessionID string `json:"session_id"`
	LessonID  string `json:"lesson_id"`
	Utterance string `json:"utterance"`
	Modality  string `json:"modality"` // text, audio, image
}

// TurnResponse is what the presentation layer receives.
type TurnResponse struct {
	SpokenText  string `json:"spoken_text"`
	DisplayText string `json:"display_text"`
	Diagram     string `json:"diagram,omitempty"`

	// LessonComplete is always computed by the mastery engine. The model's
	// own completion claim never reaches this field.
	LessonComplete bool `json:"lesson_complete"`

	ActiveAgent string `json:"active_agent"`
	Handoff     string `json:"handoff,omitempty"`
}

// backgroundTimeout bounds the fire-and-forget tasks launched after a turn
// is delivered. Evidence extraction includes a model call, so this is
// longer than a plain write would need.
const backgroundTimeout = 60 * time.Second

// safeFallback is delivered when generation fails with no usable draft.
const safeFallback = "Sorry, I lost my train of thought there. Could you say that again?"

// Orchestrator composes the full turn pipeline.
type Orchestrator struct {
	store     *store.Store
	registry  *registry.Registry
	prompts   *promptcache.Manager
	router    *routing.Service
	gen       *gen.Client
	validator *validator.Validator
	mastery   *mastery.Engine
	extractor *evidence.Extractor
	enricher  *enrichment.Enricher
	metrics   *metrics.Collector

	// sessionLocks serializes turns per session: a turn completes before
	// the next turn for the same session routes. Sessions never share a
	// lock.
	sessionLocks sync.Map // sessionID → *sync.Mutex

	bgWg     sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// New creates an Orchestrator.
func New(
	s *store.Store,
	reg *registry.Registry,
	prompts *promptcache.Manager,
	router *routing.Service,
	genClient *gen.Client,
	val *validator.Validator,
	engine *mastery.Engine,
	extractor *evidence.Extractor,
	enricher *enrichment.Enricher,
	collector *metrics.Collector,
) *Orchestrator {
	return &Orchestrator{
		store:     s,
		registry:  reg,
		prompts:   prompts,
		router:    router,
		gen:       genClient,
		validator: val,
		mastery:   engine,
		extractor: extractor,
		enricher:  enricher,
		metrics:   collector,
		shutdown:  make(chan struct{}),
	}
}

// turnReads holds the parallel fan-out results a turn needs before
// generation.
type turnReads struct {
	profile       *store.LearnerProfile
	history       []*store.SessionTurn
	lesson        *store.Lesson
	determination *mastery.Determination
}

// ProcessTurn runs one learner turn to completion and returns the response.
// The learner always receives some response: every critical-path failure
// falls back rather than surfacing.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lock := o.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	startTime := time.Now()
	session, err := o.ensureSession(ctx, req)
	if err != nil {
		return nil, err
	}

	reads, err := o.fanOut(ctx, req, session)
	if err != nil {
		// Reads failed wholesale (store down). Generation without context
		// is still better than silence.
		slog.Error("orchestrator: parallel reads failed, degrading",
			"session_id", req.SessionID, "error", err)
		reads = &turnReads{}
	}

	decision, err := o.router.Route(ctx, req.SessionID, req.Utterance)
	if err != nil {
		decision = &routing.Decision{Agent: agent.General, Reason: "routing unavailable"}
	}

	directives := buildDirectives(reads)
	resp := o.generateValidated(ctx, req, reads, decision, directives)
	return o.finish(req, reads, decision, directives, resp, startTime), nil
}

// finish applies the post-generation invariants, records metrics, and kicks
// off the background tasks. Shared by the plain and streaming paths.
func (o *Orchestrator) finish(req *TurnRequest, reads *turnReads, decision *routing.Decision, directives []string, resp *TurnResponse, startTime time.Time) *TurnResponse {
	// The completion flag comes from the mastery engine alone. A model
	// claiming the lesson is done does not make it so.
	if reads.determination != nil {
		resp.LessonComplete = reads.determination.HasMastered
	}
	resp.ActiveAgent = string(decision.Agent)
	if decision.Handoff() {
		resp.Handoff = handoffAnnouncement(decision.Agent)
	}

	latency := time.Since(startTime)
	o.metrics.TurnLatency.WithLabelValues(string(decision.Agent), strconv.FormatBool(decision.FastPath)).
		Observe(latency.Seconds())
	o.metrics.TurnsTotal.WithLabelValues("ok").Inc()

	o.launchBackground(req, decision, directives, priorTutorMessage(reads.history), resp, latency)

	slog.Info("orchestrator: turn complete",
		"session_id", req.SessionID, "agent", decision.Agent,
		"fast_path", decision.FastPath, "lesson_complete", resp.LessonComplete,
		"latency_ms", latency.Milliseconds())
	return resp
}

func validateRequest(req *TurnRequest) error {
	switch {
	case req.SessionID == "":
		return fmt.Errorf("session id is required")
	case req.LessonID == "":
		return fmt.Errorf("lesson id is required")
	case req.LearnerID <= 0:
		return fmt.Errorf("learner id is required")
	case strings.TrimSpace(req.Utterance) == "":
		return fmt.Errorf("utterance is required")
	}
	return nil
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	v, _ := o.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex) //nolint:errcheck // only mutexes are stored
}

func (o *Orchestrator) ensureSession(ctx context.Context, req *TurnRequest) (*store.Session, error) {
	session, err := o.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load session: %w", err)
	}
	if session != nil {
		return session, nil
	}
	session, err = o.store.CreateSession(ctx, &store.Session{
		ID:        req.SessionID,
		LearnerID: req.LearnerID,
		LessonID:  req.LessonID,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create session: %w", err)
	}
	slog.Info("orchestrator: session started",
		"session_id", session.ID, "learner_id", session.LearnerID, "lesson_id", session.LessonID)
	return session, nil
}

// fanOut issues the four independent reads in parallel and awaits all.
// Individual read failures degrade to nil rather than failing the group,
// except when the context itself is dead.
func (o *Orchestrator) fanOut(ctx context.Context, req *TurnRequest, session *store.Session) (*turnReads, error) {
	reads := &turnReads{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := o.store.GetLearnerProfile(gctx, req.LearnerID)
		if err != nil {
			slog.Error("orchestrator: profile read failed", "learner_id", req.LearnerID, "error", err)
			return nil
		}
		reads.profile = profile
		return nil
	})

	g.Go(func() error {
		history, err := o.store.ListSessionTurns(gctx, &store.FindSessionTurn{
			SessionID: req.SessionID,
			Limit:     20,
		})
		if err != nil {
			slog.Error("orchestrator: history read failed", "session_id", req.SessionID, "error", err)
			return nil
		}
		reads.history = history
		return nil
	})

	g.Go(func() error {
		lesson, err := o.store.GetLesson(gctx, req.LessonID)
		if err != nil {
			slog.Error("orchestrator: lesson read failed", "lesson_id", req.LessonID, "error", err)
			return nil
		}
		reads.lesson = lesson
		return nil
	})

	g.Go(func() error {
		// Runs in parallel with the lesson read, so the rule-set key comes
		// from the lesson id alone.
		subject, grade := lessonKey(req.LessonID)
		det, err := o.mastery.DetermineMastery(gctx, req.LearnerID, req.LessonID, subject, grade, startedAt(session))
		if err != nil {
			slog.Error("orchestrator: mastery read failed", "lesson_id", req.LessonID, "error", err)
			return nil
		}
		reads.determination = det
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return reads, nil
}

// lessonKey derives the rule-set key from a lesson id. Lesson ids follow
// "subject-grade-slug" (e.g. "math-4-fractions").
func lessonKey(lessonID string) (string, int) {
	parts := strings.SplitN(lessonID, "-", 3)
	if len(parts) >= 2 {
		if grade, err := strconv.Atoi(parts[1]); err == nil {
			return parts[0], grade
		}
	}
	return "", 0
}

func startedAt(session *store.Session) time.Time {
	if session == nil || session.StartedTs == 0 {
		return time.Now()
	}
	return time.Unix(session.StartedTs, 0)
}

func buildDirectives(reads *turnReads) []string {
	in := directive.Input{}
	if reads.profile != nil {
		in.LearningStyle = reads.profile.LearningStyle
		in.StruggleTopics = reads.profile.Struggles
		in.StrengthTopics = reads.profile.Strengths
	}
	if reads.determination != nil {
		in.MasteryScore = mastery.Score(reads.determination.Summary)
	}
	return directive.Generate(in)
}

// generateValidated runs generation and verification, falling back to a
// safe template whenever no usable draft survives.
func (o *Orchestrator) generateValidated(ctx context.Context, req *TurnRequest, reads *turnReads, decision *routing.Decision, directives []string) *TurnResponse {
	genReq := &gen.Request{
		Agent:      decision.Agent,
		LessonID:   req.LessonID,
		Utterance:  req.Utterance,
		Directives: directives,
		History:    historyMessages(reads.history),
	}

	draft, err := o.gen.Generate(ctx, genReq)
	if err != nil {
		o.metrics.TurnsTotal.WithLabelValues("fallback").Inc()
		if errors.Is(err, gen.ErrSchemaViolation) {
			slog.Error("orchestrator: schema violation, using safe template",
				"session_id", req.SessionID, "agent", decision.Agent)
		} else {
			slog.Error("orchestrator: generation failed, using safe template",
				"session_id", req.SessionID, "agent", decision.Agent, "error", err)
		}
		return &TurnResponse{SpokenText: safeFallback, DisplayText: safeFallback}
	}
	return o.validateDraft(ctx, req, reads, decision, genReq, draft)
}

// validateDraft runs the verification loop over a generated draft and maps
// the outcome into a deliverable response.
func (o *Orchestrator) validateDraft(ctx context.Context, req *TurnRequest, reads *turnReads, decision *routing.Decision, genReq *gen.Request, draft *gen.Response) *TurnResponse {
	if draft.Stats != nil {
		o.metrics.RecordTokens(draft.Stats.PromptTokens, draft.Stats.CompletionTokens, draft.Stats.CacheReadTokens)
	}

	lessonTitle, grade := "", 0
	if reads.lesson != nil {
		lessonTitle, grade = reads.lesson.Title, reads.lesson.Grade
	}

	outcome := o.validator.Validate(ctx, &validator.Input{
		SessionID:   req.SessionID,
		Agent:       decision.Agent,
		LessonTitle: lessonTitle,
		Grade:       grade,
		Utterance:   req.Utterance,
		SpokenText:  draft.SpokenText,
		DisplayText: draft.DisplayText,
		Diagram:     draft.Diagram,
	}, func(ctx context.Context, fixes []string) (string, string, string, error) {
		retry := *genReq
		retry.RequiredFixes = fixes
		regenerated, err := o.gen.Generate(ctx, &retry)
		if err != nil {
			return "", "", "", err
		}
		if regenerated.Stats != nil {
			o.metrics.RecordTokens(regenerated.Stats.PromptTokens, regenerated.Stats.CompletionTokens, regenerated.Stats.CacheReadTokens)
		}
		return regenerated.SpokenText, regenerated.DisplayText, regenerated.Diagram, nil
	})
	o.metrics.ValidatorOutcomes.WithLabelValues(string(outcome.State)).Inc()

	return &TurnResponse{
		SpokenText:  outcome.SpokenText,
		DisplayText: outcome.DisplayText,
		Diagram:     outcome.Diagram,
	}
}

func historyMessages(turns []*store.SessionTurn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.TurnRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	return messages
}

// priorTutorMessage finds the tutor message the learner was replying to,
// for evidence classification context.
func priorTutorMessage(turns []*store.SessionTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == store.TurnRoleAssistant {
			return turns[i].Content
		}
	}
	return ""
}

func handoffAnnouncement(to agent.Name) string {
	switch to {
	case agent.Math:
		return "Let me bring in our math tutor for this one."
	case agent.Science:
		return "Let me bring in our science tutor for this one."
	case agent.Reading:
		return "Let me bring in our reading tutor for this one."
	case agent.Assessor:
		return "Time for a quick check of what you've learned."
	case agent.Motivator:
		return "Let's take a breath together for a moment."
	default:
		return "Let me help you with that."
	}
}
