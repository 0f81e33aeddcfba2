package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/ai/orchestrator"
)

// ProcessTurn runs one learner turn through the pipeline.
func (s *APIV1Service) ProcessTurn(c echo.Context) error {
	var req orchestrator.TurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed turn request").SetInternal(err)
	}

	resp, err := s.AI.Orchestrator.ProcessTurn(c.Request().Context(), &req)
	if err != nil {
		// The orchestrator falls back internally wherever it can; an error
		// here means the request itself was unusable.
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// ProcessTurnStream runs one learner turn with streamed generation, sent as
// server-sent events: a "first_sentence" event as soon as the opening
// sentence is available, then a "turn" event with the full response.
func (s *APIV1Service) ProcessTurnStream(c echo.Context) error {
	var req orchestrator.TurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed turn request").SetInternal(err)
	}

	stream, err := s.AI.Orchestrator.ProcessTurnStream(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case sentence, ok := <-stream.FirstSentence:
			if !ok {
				stream.FirstSentence = nil
				continue
			}
			if err := writeSSE(w, "first_sentence", sentence); err != nil {
				return err
			}

		case resp := <-stream.Final:
			if resp == nil {
				return nil
			}
			return writeSSE(w, "turn", resp)

		case streamErr := <-stream.Err:
			if streamErr != nil {
				return writeSSE(w, "error", streamErr.Error())
			}
			return nil
		}
	}
}

func writeSSE(w *echo.Response, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}
