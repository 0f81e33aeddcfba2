package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/gen"
	"github.com/mentora/mentora/ai/routing"
)

// TurnStream exposes a streaming turn in progress. FirstSentence delivers
// the opening sentence as soon as it has streamed in so a speech step can
// start on it; Final delivers the complete, verified response.
type TurnStream struct {
	FirstSentence <-chan string
	Final         <-chan *TurnResponse
	Err           <-chan error
}

// ProcessTurnStream runs one learner turn with streamed generation. The
// first sentence goes out before verification completes; the final response
// carries whatever the verification loop settles on, so on a rejection the
// displayed text may differ from the sentence already spoken.
func (o *Orchestrator) ProcessTurnStream(ctx context.Context, req *TurnRequest) (*TurnStream, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	first := make(chan string, 1)
	final := make(chan *TurnResponse, 1)
	errOut := make(chan error, 1)

	go func() {
		defer close(first)
		defer close(final)
		defer close(errOut)

		lock := o.sessionLock(req.SessionID)
		lock.Lock()
		defer lock.Unlock()

		startTime := time.Now()
		session, err := o.ensureSession(ctx, req)
		if err != nil {
			errOut <- err
			return
		}

		reads, err := o.fanOut(ctx, req, session)
		if err != nil {
			slog.Error("orchestrator: parallel reads failed, degrading",
				"session_id", req.SessionID, "error", err)
			reads = &turnReads{}
		}

		decision, err := o.router.Route(ctx, req.SessionID, req.Utterance)
		if err != nil {
			decision = &routing.Decision{Agent: agent.General, Reason: "routing unavailable"}
		}

		directives := buildDirectives(reads)
		genReq := &gen.Request{
			Agent:      decision.Agent,
			LessonID:   req.LessonID,
			Utterance:  req.Utterance,
			Directives: directives,
			History:    historyMessages(reads.history),
		}

		stream, err := o.gen.GenerateStream(ctx, genReq)
		if err != nil {
			o.metrics.TurnsTotal.WithLabelValues("fallback").Inc()
			slog.Error("orchestrator: stream start failed, using safe template",
				"session_id", req.SessionID, "agent", decision.Agent, "error", err)
			first <- safeFallback
			resp := &TurnResponse{SpokenText: safeFallback, DisplayText: safeFallback}
			final <- o.finish(req, reads, decision, directives, resp, startTime)
			return
		}

		fsChan, doneChan, errChan := stream.FirstSentence, stream.Done, stream.Err
		firstSent := false
		for {
			select {
			case sentence, ok := <-fsChan:
				if !ok {
					fsChan = nil
					continue
				}
				o.metrics.FirstSentenceDelay.Observe(time.Since(startTime).Seconds())
				first <- sentence
				firstSent = true

			case draft, ok := <-doneChan:
				if !ok {
					doneChan = nil
					continue
				}
				if !firstSent {
					first <- draft.SpokenText
				}
				resp := o.validateDraft(ctx, req, reads, decision, genReq, draft)
				final <- o.finish(req, reads, decision, directives, resp, startTime)
				return

			case err, ok := <-errChan:
				if !ok {
					errChan = nil
					continue
				}
				o.metrics.TurnsTotal.WithLabelValues("fallback").Inc()
				slog.Error("orchestrator: stream failed, using safe template",
					"session_id", req.SessionID, "agent", decision.Agent, "error", err)
				if !firstSent {
					first <- safeFallback
				}
				resp := &TurnResponse{SpokenText: safeFallback, DisplayText: safeFallback}
				final <- o.finish(req, reads, decision, directives, resp, startTime)
				return

			case <-ctx.Done():
				errOut <- ctx.Err()
				return
			}
		}
	}()

	return &TurnStream{FirstSentence: first, Final: final, Err: errOut}, nil
}
