// Package routing decides which agent handles each learner turn.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/internal/strutil"
	"github.com/mentora/mentora/store"
)

// Decision is the outcome of routing one turn.
type Decision struct {
	Agent    agent.Name
	Reason   string
	FastPath bool

	// Previous is the agent active before this turn, empty at session
	// start. A non-empty Previous differing from Agent marks a handoff.
	Previous agent.Name
}

// Handoff reports whether this decision moved the session to a new agent.
func (d *Decision) Handoff() bool {
	return d.Previous != "" && d.Previous != d.Agent
}

// subjectKeywords trigger a full re-route when the learner names a subject
// that differs from the active agent's domain.
var subjectKeywords = map[string]agent.Name{
	"math":        agent.Math,
	"maths":       agent.Math,
	"algebra":     agent.Math,
	"geometry":    agent.Math,
	"fraction":    agent.Math,
	"fractions":   agent.Math,
	"equation":    agent.Math,
	"science":     agent.Science,
	"biology":     agent.Science,
	"chemistry":   agent.Science,
	"physics":     agent.Science,
	"experiment":  agent.Science,
	"reading":     agent.Reading,
	"writing":     agent.Reading,
	"grammar":     agent.Reading,
	"spelling":    agent.Reading,
	"vocabulary":  agent.Reading,
	"book":        agent.Reading,
	"story":       agent.Reading,
	"essay":       agent.Reading,
}

// distressKeywords route to the motivator regardless of the active agent.
var distressKeywords = []string{
	"give up",
	"giving up",
	"i quit",
	"i can't do this",
	"i cant do this",
	"too hard",
	"i'm stupid",
	"im stupid",
	"i hate this",
	"frustrated",
	"frustrating",
}

const routePrompt = `You route a learner's message to one tutoring agent.
Agents: math, science, reading, general, assessor, motivator.
Pick "assessor" when the learner asks to be quizzed or tested.
Pick "motivator" when the learner sounds discouraged.
Pick "general" when no subject agent fits.
Respond with a single JSON object: {"agent": "<name>", "reason": "<one sentence>"}`

// Service routes learner turns.
type Service struct {
	llm   llm.Service
	store *store.Store
}

// NewService creates a routing Service.
func NewService(llmService llm.Service, s *store.Store) *Service {
	return &Service{llm: llmService, store: s}
}

// Route decides the agent for one turn. When the session already has an
// active agent and the utterance gives no reason to switch, the stored
// assignment is reused without a model call.
func (s *Service) Route(ctx context.Context, sessionID, utterance string) (*Decision, error) {
	state, err := s.store.GetRoutingState(ctx, sessionID)
	if err != nil {
		slog.Error("routing: read state failed, falling back to full route",
			"session_id", sessionID, "error", err)
		state = nil
	}

	lower := strings.ToLower(utterance)

	var prev agent.Name
	if state != nil && agent.Valid(state.ActiveAgent) {
		prev = agent.Name(state.ActiveAgent)
	}

	if hit, name := distressHit(lower); hit {
		return s.commit(ctx, sessionID, &Decision{
			Agent:    name,
			Reason:   "learner distress signals",
			Previous: prev,
		})
	}

	if prev != "" {
		if target, switching := subjectSwitch(lower, prev); switching {
			slog.Debug("routing: subject switch detected",
				"session_id", sessionID, "from", prev, "to", target)
			return s.commit(ctx, sessionID, &Decision{
				Agent:    target,
				Reason:   "subject switch in learner message",
				Previous: prev,
			})
		}
		return &Decision{
			Agent:    prev,
			Reason:   state.Reason,
			FastPath: true,
			Previous: prev,
		}, nil
	}

	return s.fullRoute(ctx, sessionID, utterance, prev)
}

// fullRoute asks the coordinator model. A coordinator failure still yields
// a usable decision: the general-purpose agent takes the turn.
func (s *Service) fullRoute(ctx context.Context, sessionID, utterance string, prev agent.Name) (*Decision, error) {
	startTime := time.Now()
	content, _, err := s.llm.ChatJSON(ctx, []llm.Message{
		llm.SystemPrompt(routePrompt),
		llm.UserMessage(utterance),
	})
	if err != nil {
		slog.Error("routing: coordinator call failed, using general agent",
			"session_id", sessionID, "error", err)
		return s.commit(ctx, sessionID, &Decision{
			Agent:    agent.General,
			Reason:   "coordinator unavailable",
			Previous: prev,
		})
	}

	var parsed struct {
		Agent  string `json:"agent"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strutil.ExtractJSON(content)), &parsed); err != nil {
		slog.Warn("routing: coordinator returned malformed decision, using general agent",
			"session_id", sessionID, "content", strutil.Truncate(content, 200))
		return s.commit(ctx, sessionID, &Decision{
			Agent:    agent.General,
			Reason:   "coordinator decision unreadable",
			Previous: prev,
		})
	}

	decision := &Decision{
		Agent:    agent.Normalize(parsed.Agent),
		Reason:   parsed.Reason,
		Previous: prev,
	}
	slog.Debug("routing: coordinator decision",
		"session_id", sessionID, "agent", decision.Agent,
		"latency_ms", time.Since(startTime).Milliseconds())
	return s.commit(ctx, sessionID, decision)
}

// commit persists the decision as the session's new routing state.
// Persistence failure is logged, not propagated: the decision stands for
// this turn and the next turn routes afresh.
func (s *Service) commit(ctx context.Context, sessionID string, d *Decision) (*Decision, error) {
	_, err := s.store.UpsertRoutingState(ctx, &store.RoutingState{
		SessionID:   sessionID,
		ActiveAgent: string(d.Agent),
		Reason:      d.Reason,
	})
	if err != nil {
		slog.Error("routing: persist state failed", "session_id", sessionID, "error", err)
	}
	return d, nil
}

// Reassign overrides the active agent for a session, used when the
// orchestrator hands a turn to the assessor or motivator explicitly.
func (s *Service) Reassign(ctx context.Context, sessionID string, name agent.Name, reason string) error {
	_, err := s.store.UpsertRoutingState(ctx, &store.RoutingState{
		SessionID:   sessionID,
		ActiveAgent: string(name),
		Reason:      reason,
	})
	if err != nil {
		return fmt.Errorf("routing: reassign: %w", err)
	}
	return nil
}

func distressHit(lower string) (bool, agent.Name) {
	for _, kw := range distressKeywords {
		if strings.Contains(lower, kw) {
			return true, agent.Motivator
		}
	}
	return false, ""
}

// subjectSwitch reports whether the utterance names a subject handled by a
// different specialist than the active one. When several subjects are named
// the one mentioned first wins, so the choice is deterministic.
func subjectSwitch(lower string, active agent.Name) (agent.Name, bool) {
	best := -1
	bestLen := 0
	var chosen agent.Name
	for kw, target := range subjectKeywords {
		if target == active {
			continue
		}
		idx := wordIndex(lower, kw)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best || (idx == best && len(kw) > bestLen) {
			best, bestLen, chosen = idx, len(kw), target
		}
	}
	return chosen, best >= 0
}

// containsWord matches kw on word boundaries so "math" does not fire on
// "aftermath".
func containsWord(s, kw string) bool {
	return wordIndex(s, kw) >= 0
}

// wordIndex returns the position of the first word-boundary match of kw in
// s, or -1.
func wordIndex(s, kw string) int {
	idx := 0
	for {
		i := strings.Index(s[idx:], kw)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(s[start-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return start
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
