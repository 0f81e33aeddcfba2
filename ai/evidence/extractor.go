// Package evidence classifies learner turns into performance evidence.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/internal/strutil"
	"github.com/mentora/mentora/store"
)

const extractPrompt = `You classify a learner's message in a tutoring session as evidence of performance.
Kinds:
- correct_answer: the learner answered a question correctly
- incorrect_answer: the learner answered a question incorrectly
- explanation: the learner explained a concept in their own words
- application: the learner applied a concept to a new problem or situation
- struggle: the learner expressed confusion or difficulty
- none: the message carries no performance signal (greetings, chit-chat, questions)

Quality is 0-100: how well the learner performed within the kind.
Confidence is 0-1: how certain you are of the classification.
Topic is a short tag for the concept involved, or "" if unclear.

The tutor's preceding message is given for context. Classify only the learner's message.
Respond with a single JSON object: {"kind": "...", "quality": 0, "confidence": 0.0, "topic": "..."}`

// Observation is one classified learner turn before it is recorded.
type Observation struct {
	Kind       store.EvidenceKind
	Quality    int
	Confidence float64
	Topic      string
}

// Extractor classifies turns and records qualifying evidence.
type Extractor struct {
	llm   llm.Service
	store *store.Store
}

// NewExtractor creates an evidence Extractor.
func NewExtractor(llmService llm.Service, s *store.Store) *Extractor {
	return &Extractor{llm: llmService, store: s}
}

// Classify asks the model to classify one learner message. Returns nil when
// the message carries no performance signal.
func (e *Extractor) Classify(ctx context.Context, tutorMessage, learnerMessage string) (*Observation, error) {
	startTime := time.Now()
	content, _, err := e.llm.ChatJSON(ctx, []llm.Message{
		llm.SystemPrompt(extractPrompt),
		llm.UserMessage(fmt.Sprintf("Tutor: %s\n\nLearner: %s", tutorMessage, learnerMessage)),
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: classify call: %w", err)
	}

	var parsed struct {
		Kind       string  `json:"kind"`
		Quality    int     `json:"quality"`
		Confidence float64 `json:"confidence"`
		Topic      string  `json:"topic"`
	}
	if err := json.Unmarshal([]byte(strutil.ExtractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("evidence: malformed classification %q: %w", strutil.Truncate(content, 200), err)
	}

	if parsed.Kind == "none" || parsed.Kind == "" {
		return nil, nil
	}
	if !store.ValidEvidenceKind(store.EvidenceKind(parsed.Kind)) {
		slog.Warn("evidence: model emitted unknown kind, dropping", "kind", parsed.Kind)
		return nil, nil
	}
	if parsed.Quality < 0 {
		parsed.Quality = 0
	}
	if parsed.Quality > 100 {
		parsed.Quality = 100
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	slog.Debug("evidence: classified",
		"kind", parsed.Kind, "quality", parsed.Quality,
		"latency_ms", time.Since(startTime).Milliseconds())

	return &Observation{
		Kind:       store.EvidenceKind(parsed.Kind),
		Quality:    parsed.Quality,
		Confidence: parsed.Confidence,
		Topic:      parsed.Topic,
	}, nil
}

// Record persists an observation as evidence. Evidence is append-only.
func (e *Extractor) Record(ctx context.Context, learnerID int32, lessonID, sessionID, content string, obs *Observation) (*store.Evidence, error) {
	created, err := e.store.CreateEvidence(ctx, &store.Evidence{
		LearnerID:  learnerID,
		LessonID:   lessonID,
		SessionID:  sessionID,
		Kind:       obs.Kind,
		Content:    strutil.Truncate(content, 2000),
		Topic:      obs.Topic,
		Quality:    obs.Quality,
		Confidence: obs.Confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: record: %w", err)
	}
	return created, nil
}

// Extract classifies and, when a signal is present, records one learner
// turn. Returns the stored evidence or nil when nothing qualified.
func (e *Extractor) Extract(ctx context.Context, learnerID int32, lessonID, sessionID, tutorMessage, learnerMessage string) (*store.Evidence, error) {
	obs, err := e.Classify(ctx, tutorMessage, learnerMessage)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, nil
	}
	return e.Record(ctx, learnerID, lessonID, sessionID, learnerMessage, obs)
}
