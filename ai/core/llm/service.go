// Package llm provides the generative-model client used by every agent.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrUpstream marks transient upstream failures (network hiccup, provider
// error, open circuit breaker). Callers retry a bounded number of times with
// the same prompt or fall back.
var ErrUpstream = errors.New("llm upstream unavailable")

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats represents statistics for a single LLM call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	CacheReadTokens  int   `json:"cache_read_tokens,omitempty"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message) (string, *CallStats, error)

	// ChatJSON performs synchronous chat in JSON mode: the provider is
	// instructed to emit a single JSON object. The returned content is the
	// raw JSON text; schema enforcement happens in the caller.
	ChatJSON(ctx context.Context, messages []Message) (string, *CallStats, error)

	// ChatStream performs streaming chat. Returns content channel, stats
	// channel, and error channel. The stats channel is closed after sending
	// final stats when the stream completes.
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan *CallStats, <-chan error)

	// Warmup sends a lightweight ping request to establish and warm up the
	// LLM connection.
	Warmup(ctx context.Context)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, deepseek, siliconflow, openrouter, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 120)

	// RequestsPerSecond caps outbound call rate, 0 disables limiting.
	RequestsPerSecond float64
}

type service struct {
	client      *openai.Client
	breaker     *gobreaker.CircuitBreaker[*openai.ChatCompletionResponse]
	limiter     *rate.Limiter
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	breaker := gobreaker.NewCircuitBreaker[*openai.ChatCompletionResponse](gobreaker.Settings{
		Name:    "llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("llm circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		breaker:     breaker,
		limiter:     limiter,
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	return s.chat(ctx, messages, nil)
}

func (s *service) ChatJSON(ctx context.Context, messages []Message) (string, *CallStats, error) {
	return s.chat(ctx, messages, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (s *service) chat(ctx context.Context, messages []Message, format *openai.ChatCompletionResponseFormat) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	if err := s.wait(ctx); err != nil {
		return "", nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:          s.model,
		MaxTokens:      s.maxTokens,
		Temperature:    s.temperature,
		Messages:       convertMessages(messages),
		ResponseFormat: format,
	}

	startTime := time.Now()
	resp, err := s.breaker.Execute(func() (*openai.ChatCompletionResponse, error) {
		r, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil {
		slog.Error("llm chat request failed", "error", err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", nil, fmt.Errorf("%w: circuit open", ErrUpstream)
		}
		return "", nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	totalDuration := time.Since(startTime)
	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  totalDuration.Milliseconds(),
	}
	if resp.Usage.PromptTokensDetails != nil && resp.Usage.PromptTokensDetails.CachedTokens > 0 {
		stats.CacheReadTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	slog.Debug("llm chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", totalDuration.Milliseconds(),
	)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan *CallStats, <-chan error) {
	contentChan := make(chan string, 10)
	statsChan := make(chan *CallStats, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(statsChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if err := s.wait(ctx); err != nil {
			errChan <- err
			return
		}

		req := openai.ChatCompletionRequest{
			Model:         s.model,
			MaxTokens:     s.maxTokens,
			Temperature:   s.temperature,
			Messages:      convertMessages(messages),
			StreamOptions: &openai.StreamOptions{IncludeUsage: true},
		}

		startTime := time.Now()
		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			slog.Error("llm stream failed to create", "error", err)
			select {
			case errChan <- fmt.Errorf("%w: create stream: %v", ErrUpstream, err):
			case <-ctx.Done():
			}
			return
		}
		defer func() { _ = stream.Close() }() //nolint:errcheck // cleanup

		chunkCount := 0
		for {
			response, err := stream.Recv()
			if err != nil {
				if strings.Contains(err.Error(), "EOF") {
					statsChan <- &CallStats{TotalDurationMs: time.Since(startTime).Milliseconds()}
					return
				}
				slog.Error("llm stream receive error", "error", err, "chunks_so_far", chunkCount)
				select {
				case errChan <- fmt.Errorf("%w: stream recv: %v", ErrUpstream, err):
				case <-ctx.Done():
				}
				return
			}

			if response.Usage != nil && response.Usage.TotalTokens > 0 {
				stats := &CallStats{
					PromptTokens:     response.Usage.PromptTokens,
					CompletionTokens: response.Usage.CompletionTokens,
					TotalTokens:      response.Usage.TotalTokens,
					TotalDurationMs:  time.Since(startTime).Milliseconds(),
				}
				slog.Debug("llm stream finished", "chunks", chunkCount, "total_tokens", stats.TotalTokens)
				statsChan <- stats
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta.Content
			if delta != "" {
				chunkCount++
				select {
				case contentChan <- delta:
				case <-ctx.Done():
					slog.Warn("llm stream context cancelled during send", "chunks", chunkCount)
					return
				}
			}

			if response.Choices[0].FinishReason != "" {
				statsChan <- &CallStats{TotalDurationMs: time.Since(startTime).Milliseconds()}
				return
			}
		}
	}()

	return contentChan, statsChan, errChan
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("llm: starting connection warmup", "provider", s.provider, "model", s.model)

	startTime := time.Now()
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}
	_, err := s.client.CreateChatCompletion(warmupCtx, req)
	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("llm: warmup ping failed (first request may be slower)",
			"provider", s.provider, "error", err, "duration_ms", duration.Milliseconds())
		return
	}
	slog.Info("llm: connection warmed up", "provider", s.provider, "duration_ms", duration.Milliseconds())
}

func (s *service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", ErrUpstream, err)
	}
	return nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// FormatMessages assembles a prompt: system, then history, then the user turn.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
