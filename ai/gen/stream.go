package gen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mentora/mentora/ai/core/llm"
)

// StreamResult exposes a streaming generation in progress.
type StreamResult struct {
	// FirstSentence delivers the first complete sentence of the spoken text
	// as soon as it has streamed in, then closes. A downstream speech step
	// can start on it while the rest of the response is still arriving.
	FirstSentence <-chan string

	// Done delivers the full assembled response once the stream completes,
	// then closes.
	Done <-chan *Response

	// Err delivers at most one terminal error.
	Err <-chan error
}

// GenerateStream produces a plain-text streaming response. Streaming mode
// trades the JSON schema for latency: the streamed text becomes both spoken
// and display forms, and the completion flag is left to the caller as
// always.
func (c *Client) GenerateStream(ctx context.Context, req *Request) (*StreamResult, error) {
	messages, _, err := c.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}
	// Replace the JSON schema instruction block for plain streaming.
	if len(messages) > 0 && messages[0].Role == "system" {
		messages[0].Content = strings.Replace(messages[0].Content, schemaInstructions,
			"Respond conversationally in plain text, as a voice would speak.", 1)
	}

	contentChan, statsChan, errChan := c.llm.ChatStream(ctx, messages)

	firstSentence := make(chan string, 1)
	done := make(chan *Response, 1)
	errOut := make(chan error, 1)

	go func() {
		defer close(firstSentence)
		defer close(done)
		defer close(errOut)

		var full strings.Builder
		var stats *llm.CallStats
		sentenceSent := false

		flushFirst := func() {
			if sentenceSent {
				return
			}
			if s, ok := FirstSentence(full.String()); ok {
				firstSentence <- s
				sentenceSent = true
			}
		}

		// Stats may arrive while chunks are still buffered, so the response
		// is only assembled once every channel has closed.
		for contentChan != nil || statsChan != nil || errChan != nil {
			select {
			case chunk, ok := <-contentChan:
				if !ok {
					contentChan = nil
					continue
				}
				full.WriteString(chunk)
				flushFirst()

			case s, ok := <-statsChan:
				if !ok {
					statsChan = nil
					continue
				}
				stats = s

			case err, ok := <-errChan:
				if !ok {
					errChan = nil
					continue
				}
				slog.Error("gen: stream failed", "agent", req.Agent, "error", err)
				errOut <- err
				return

			case <-ctx.Done():
				errOut <- ctx.Err()
				return
			}
		}

		text := strings.TrimSpace(full.String())
		if text == "" {
			errOut <- fmt.Errorf("gen: %s: stream ended with no content", req.Agent)
			return
		}
		if !sentenceSent {
			firstSentence <- text
		}
		done <- &Response{SpokenText: text, DisplayText: text, Stats: stats}
	}()

	return &StreamResult{FirstSentence: firstSentence, Done: done, Err: errOut}, nil
}

// FirstSentence extracts the first complete sentence from accumulated text.
// A sentence ends at '.', '!', or '?' followed by whitespace. A terminator
// at the very end of the text does not count while streaming: more chunks
// may still arrive (a decimal point, an abbreviation, an ellipsis).
func FirstSentence(s string) (string, bool) {
	for i, r := range s {
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i + utf8.RuneLen(r)
		if end < len(s) {
			next, _ := utf8.DecodeRuneInString(s[end:])
			if !unicode.IsSpace(next) {
				continue
			}
		} else {
			// End of accumulated text: the terminator may be mid-number or
			// mid-abbreviation with more chunks coming.
			return "", false
		}

		sentence := strings.TrimSpace(s[:end])
		// A bare terminator or very short fragment is not worth speaking early.
		if utf8.RuneCountInString(sentence) < 2 {
			continue
		}
		return sentence, true
	}
	return "", false
}
