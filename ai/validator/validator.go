// Package validator verifies specialist drafts before delivery.
//
// Verification fails open: a validator timeout or error never withholds a
// response from the learner. The worst outcome for a draft is delivery with
// a disclaimer.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/internal/strutil"
	"github.com/mentora/mentora/store"
)

// State is a stage in the validation lifecycle.
type State string

const (
	StateDrafted             State = "drafted"
	StateValidating          State = "validating"
	StateApproved            State = "approved"
	StateRejectedPendingRetry State = "rejected_pending_retry"
	StateRejectedFinal       State = "rejected_final"
	StateTimedOut            State = "timed_out"
)

// approveThreshold is the minimum validator confidence for approval.
const approveThreshold = 0.80

// maxRegenerations bounds how many times a rejected draft is regenerated.
const maxRegenerations = 2

// Disclaimer is appended to a draft delivered after final rejection.
const Disclaimer = "I'm not fully certain about this one, so it's worth double-checking with your teacher."

const validatePrompt = `You verify a tutoring response before it reaches a learner.
Check five things:
1. factual: is the content factually correct?
2. level: does it match the stated curriculum level?
3. consistent: is the text internally consistent, including with any diagram?
4. ordering: are concepts introduced in a sound pedagogical order?
5. diagram: does any diagram align with the text? (true if there is no diagram)

Respond with a single JSON object:
{"factual": true, "level": true, "consistent": true, "ordering": true, "diagram": true,
 "confidence": 0.0, "required_fixes": ["<fix>", ...]}
required_fixes lists concrete corrections when any check fails, otherwise [].`

// Verdict is one validator call's output.
type Verdict struct {
	Factual       bool     `json:"factual"`
	Level         bool     `json:"level"`
	Consistent    bool     `json:"consistent"`
	Ordering      bool     `json:"ordering"`
	Diagram       bool     `json:"diagram"`
	Confidence    float64  `json:"confidence"`
	RequiredFixes []string `json:"required_fixes"`
}

// Approve reports whether the verdict clears the draft for delivery.
func (v *Verdict) Approve() bool {
	return v.Factual && v.Level && v.Consistent && v.Ordering && v.Diagram &&
		v.Confidence >= approveThreshold
}

// Outcome is the final result of validating one draft.
type Outcome struct {
	State State

	// SpokenText and DisplayText are the deliverable draft, possibly a
	// regenerated one, possibly carrying a disclaimer.
	SpokenText  string
	DisplayText string
	Diagram     string

	Attempts int
}

// RegenFunc regenerates a rejected draft with the validator's required
// fixes folded into the prompt.
type RegenFunc func(ctx context.Context, requiredFixes []string) (spoken, display, diagram string, err error)

// Config represents validator configuration.
type Config struct {
	// Timeout bounds each validator call. On expiry the draft is delivered
	// as if approved. Default: 10 seconds.
	Timeout time.Duration
}

// DefaultConfig returns the default validator configuration.
func DefaultConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

// Validator runs the verification state machine.
type Validator struct {
	llm     llm.Service
	store   *store.Store
	timeout time.Duration
}

// New creates a Validator.
func New(llmService llm.Service, s *store.Store, cfg *Config) *Validator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Validator{llm: llmService, store: s, timeout: cfg.Timeout}
}

// Input describes the draft under validation.
type Input struct {
	SessionID   string
	Agent       agent.Name
	LessonTitle string
	Grade       int
	Utterance   string
	SpokenText  string
	DisplayText string
	Diagram     string
}

// Validate runs a draft through the state machine. Only specialist drafts
// are verified; router, assessor, and support output is approved directly.
// The regen callback is invoked on rejection, at most twice.
func (v *Validator) Validate(ctx context.Context, in *Input, regen RegenFunc) *Outcome {
	out := &Outcome{
		State:       StateDrafted,
		SpokenText:  in.SpokenText,
		DisplayText: in.DisplayText,
		Diagram:     in.Diagram,
	}

	if !in.Agent.IsSpecialist() {
		out.State = StateApproved
		return out
	}

	for {
		out.State = StateValidating
		verdict, err := v.check(ctx, in, out)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				out.State = StateTimedOut
				slog.Warn("validator: timed out, delivering unverified draft",
					"session_id", in.SessionID, "agent", in.Agent, "attempts", out.Attempts)
			} else {
				// Same fail-open policy as timeout: verification problems
				// never block delivery.
				out.State = StateTimedOut
				slog.Error("validator: check failed, delivering unverified draft",
					"session_id", in.SessionID, "agent", in.Agent, "error", err)
			}
			v.audit(ctx, in, out, nil)
			return out
		}

		if verdict.Approve() {
			out.State = StateApproved
			v.audit(ctx, in, out, verdict)
			return out
		}

		if out.Attempts >= maxRegenerations {
			out.State = StateRejectedFinal
			out.SpokenText = out.SpokenText + " " + Disclaimer
			out.DisplayText = out.DisplayText + "\n\n_" + Disclaimer + "_"
			slog.Warn("validator: final rejection, delivering with disclaimer",
				"session_id", in.SessionID, "agent", in.Agent,
				"confidence", verdict.Confidence, "fixes", verdict.RequiredFixes)
			v.audit(ctx, in, out, verdict)
			return out
		}

		out.State = StateRejectedPendingRetry
		out.Attempts++
		slog.Info("validator: draft rejected, regenerating",
			"session_id", in.SessionID, "agent", in.Agent,
			"attempt", out.Attempts, "confidence", verdict.Confidence)
		v.audit(ctx, in, out, verdict)

		spoken, display, diagram, err := regen(ctx, verdict.RequiredFixes)
		if err != nil {
			// Regeneration failed: the rejected draft with a disclaimer
			// still beats no response.
			out.State = StateRejectedFinal
			out.SpokenText = out.SpokenText + " " + Disclaimer
			out.DisplayText = out.DisplayText + "\n\n_" + Disclaimer + "_"
			slog.Error("validator: regeneration failed, delivering prior draft with disclaimer",
				"session_id", in.SessionID, "agent", in.Agent, "error", err)
			v.audit(ctx, in, out, verdict)
			return out
		}
		out.SpokenText = spoken
		out.DisplayText = display
		out.Diagram = diagram
	}
}

// check runs one validator model call under the hard timeout.
func (v *Validator) check(ctx context.Context, in *Input, out *Outcome) (*Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	draft := fmt.Sprintf("Lesson: %s (grade %d)\nLearner asked: %s\n\nDraft response:\n%s",
		in.LessonTitle, in.Grade, in.Utterance, out.DisplayText)
	if out.Diagram != "" {
		draft += "\n\nDiagram:\n" + out.Diagram
	}

	content, _, err := v.llm.ChatJSON(ctx, []llm.Message{
		llm.SystemPrompt(validatePrompt),
		llm.UserMessage(draft),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(strutil.ExtractJSON(content)), &verdict); err != nil {
		return nil, fmt.Errorf("malformed verdict %q: %w", strutil.Truncate(content, 200), err)
	}
	return &verdict, nil
}

// audit records the validation outcome for later review. Best effort.
func (v *Validator) audit(ctx context.Context, in *Input, out *Outcome, verdict *Verdict) {
	outcome := auditOutcome(out.State)
	audit := &store.ValidationAudit{
		SessionID: in.SessionID,
		AgentName: string(in.Agent),
		Outcome:   outcome,
		Attempt:   out.Attempts,
	}
	if verdict != nil {
		audit.Confidence = verdict.Confidence
		audit.RequiredFixes = verdict.RequiredFixes
	}
	if err := v.store.CreateValidationAudit(ctx, audit); err != nil {
		slog.Error("validator: audit write failed", "session_id", in.SessionID, "error", err)
	}
}

func auditOutcome(s State) string {
	switch s {
	case StateApproved:
		return store.ValidationOutcomeApproved
	case StateRejectedPendingRetry:
		return store.ValidationOutcomeRejectedRetry
	case StateRejectedFinal:
		return store.ValidationOutcomeRejectedFinal
	case StateTimedOut:
		return store.ValidationOutcomeTimedOut
	default:
		return string(s)
	}
}
