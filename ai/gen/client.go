// Package gen invokes the model for a named agent under a fixed response
// schema.
package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/internal/strutil"
	"github.com/mentora/mentora/ai/promptcache"
)

// ErrSchemaViolation is returned when the model's output cannot be parsed
// into the response schema even after a retry. Callers fall back to a safe
// template response.
var ErrSchemaViolation = errors.New("model output violates response schema")

// Request is one generation call for a named agent.
type Request struct {
	Agent      agent.Name
	LessonID   string
	Utterance  string
	Directives []string
	History    []llm.Message

	// RequiredFixes carries validator feedback into a regeneration attempt.
	RequiredFixes []string
}

// Response is the schema every agent response must conform to.
type Response struct {
	SpokenText  string `json:"spoken_text"`
	DisplayText string `json:"display_text"`
	Diagram     string `json:"diagram,omitempty"`

	// ModelClaimsComplete is the model's own opinion that the lesson is
	// done. It is recorded for logging only; the delivered completion flag
	// is always recomputed from stored evidence.
	ModelClaimsComplete bool `json:"lesson_complete,omitempty"`

	Stats *llm.CallStats `json:"-"`
}

const schemaInstructions = `Respond with a single JSON object:
{
  "spoken_text": "<what a voice should say, conversational, no markup>",
  "display_text": "<what a screen should show, may use markdown>",
  "diagram": "<optional mermaid diagram source, or omit>",
  "lesson_complete": false
}`

// Client generates agent responses.
type Client struct {
	llm    llm.Service
	prompt *promptcache.Manager
}

// NewClient creates a generation Client.
func NewClient(llmService llm.Service, prompt *promptcache.Manager) *Client {
	return &Client{llm: llmService, prompt: prompt}
}

// buildMessages assembles the full prompt. The cached static prefix always
// comes first and byte-identical across turns so the provider-side prompt
// cache hits; per-turn material follows.
func (c *Client) buildMessages(ctx context.Context, req *Request) ([]llm.Message, string, error) {
	entry, err := c.prompt.Context(ctx, req.Agent, req.LessonID)
	if err != nil {
		return nil, "", err
	}

	var dynamic strings.Builder
	dynamic.WriteString(schemaInstructions)
	if len(req.Directives) > 0 {
		dynamic.WriteString("\n\nTeaching directives for this turn:\n")
		for _, d := range req.Directives {
			dynamic.WriteString("- ")
			dynamic.WriteString(d)
			dynamic.WriteString("\n")
		}
	}
	if len(req.RequiredFixes) > 0 {
		dynamic.WriteString("\nYour previous draft was rejected. You must fix:\n")
		for _, f := range req.RequiredFixes {
			dynamic.WriteString("- ")
			dynamic.WriteString(f)
			dynamic.WriteString("\n")
		}
	}

	system := entry.StaticPrompt + "\n\n" + dynamic.String()
	return llm.FormatMessages(system, req.Utterance, req.History), entry.Handle, nil
}

// Generate produces a schema-conforming response. A first parse failure is
// retried once with an explicit correction instruction; a second failure
// returns ErrSchemaViolation.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	messages, handle, err := c.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	content, stats, err := c.llm.ChatJSON(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("gen: %s: %w", req.Agent, err)
	}

	resp, parseErr := parseResponse(content)
	if parseErr != nil {
		slog.Warn("gen: schema parse failed, retrying once",
			"agent", req.Agent, "error", parseErr, "content", strutil.Truncate(content, 200))

		retry := append(messages,
			llm.AssistantMessage(content),
			llm.UserMessage("That was not valid JSON for the required schema. Respond again with only the JSON object."),
		)
		content, stats, err = c.llm.ChatJSON(ctx, retry)
		if err != nil {
			return nil, fmt.Errorf("gen: %s retry: %w", req.Agent, err)
		}
		resp, parseErr = parseResponse(content)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, parseErr)
		}
	}

	resp.Stats = stats
	slog.Debug("gen: response generated",
		"agent", req.Agent, "cache_handle", handle,
		"spoken_length", len(resp.SpokenText),
		"latency_ms", time.Since(startTime).Milliseconds())
	return resp, nil
}

func parseResponse(content string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(strutil.ExtractJSON(content)), &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.SpokenText) == "" && strings.TrimSpace(resp.DisplayText) == "" {
		return nil, fmt.Errorf("both spoken_text and display_text empty")
	}
	if resp.SpokenText == "" {
		resp.SpokenText = resp.DisplayText
	}
	if resp.DisplayText == "" {
		resp.DisplayText = resp.SpokenText
	}
	return &resp, nil
}
