package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/routing"
	"github.com/mentora/mentora/store"
)

// launchBackground starts the fire-and-forget tasks for a delivered turn:
// persisting the transcript, extracting evidence, enriching the profile,
// and writing the turn log. None of them can affect the response already
// sent; their errors are logged and counted, never propagated.
func (o *Orchestrator) launchBackground(req *TurnRequest, decision *routing.Decision, directives []string, priorTutor string, resp *TurnResponse, latency time.Duration) {
	select {
	case <-o.shutdown:
		slog.Warn("orchestrator: shutting down, skipping background tasks",
			"session_id", req.SessionID)
		return
	default:
	}

	o.bgWg.Add(1)
	go func() {
		defer o.bgWg.Done()

		// Detached from the request context: the learner disconnecting must
		// not cancel writes that only affect future turns.
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		o.persistTranscript(ctx, req, resp)

		// Evidence must land before enrichment scans the window.
		if ev, err := o.extractor.Extract(ctx, req.LearnerID, req.LessonID, req.SessionID, priorTutor, req.Utterance); err != nil {
			o.bgError("evidence extraction", req.SessionID, err)
		} else if ev != nil {
			slog.Debug("orchestrator: evidence recorded",
				"session_id", req.SessionID, "kind", ev.Kind, "quality", ev.Quality)
		}

		o.enricher.EnrichIfNeeded(ctx, req.LearnerID, req.SessionID)

		// A mastered lesson ends the specialist's run: the next turn goes to
		// the assessor for a wrap-up check via the fast path.
		if resp.LessonComplete && decision.Agent != agent.Assessor {
			if err := o.router.Reassign(ctx, req.SessionID, agent.Assessor, "lesson mastered, moving to assessment"); err != nil {
				o.bgError("assessor reassign", req.SessionID, err)
			}
		}

		if err := o.store.CreateTurnLog(ctx, &store.TurnLog{
			SessionID:   req.SessionID,
			LearnerID:   req.LearnerID,
			LessonID:    req.LessonID,
			AgentName:   string(decision.Agent),
			RouteReason: decision.Reason,
			FastPath:    decision.FastPath,
			Directives:  directives,
			LatencyMs:   latency.Milliseconds(),
		}); err != nil {
			o.bgError("turn log", req.SessionID, err)
		}
	}()
}

func (o *Orchestrator) persistTranscript(ctx context.Context, req *TurnRequest, resp *TurnResponse) {
	if err := o.store.CreateSessionTurn(ctx, &store.SessionTurn{
		SessionID: req.SessionID,
		Role:      store.TurnRoleUser,
		Content:   req.Utterance,
	}); err != nil {
		o.bgError("learner turn persist", req.SessionID, err)
	}
	if err := o.store.CreateSessionTurn(ctx, &store.SessionTurn{
		SessionID: req.SessionID,
		Role:      store.TurnRoleAssistant,
		AgentName: resp.ActiveAgent,
		Content:   resp.DisplayText,
	}); err != nil {
		o.bgError("assistant turn persist", req.SessionID, err)
	}
}

func (o *Orchestrator) bgError(task, sessionID string, err error) {
	o.metrics.BackgroundErrors.Inc()
	slog.Error("orchestrator: background task failed",
		"task", task, "session_id", sessionID, "error", err)
}

// Shutdown waits for in-flight background tasks to finish, up to the
// context deadline. New turns launched after Shutdown skip their background
// tasks.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.once.Do(func() { close(o.shutdown) })

	done := make(chan struct{})
	go func() {
		o.bgWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("orchestrator: background tasks drained")
		return nil
	case <-ctx.Done():
		slog.Warn("orchestrator: shutdown deadline reached with background tasks still running")
		return ctx.Err()
	}
}
