package gen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm/llmtest"
)

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", false},
		{"Hello there", "", false},
		// A terminator at the end of the accumulated text waits for the
		// next chunk.
		{"Hello there.", "", false},
		{"Hello there. More", "Hello there.", true},
		{"Great job! Now try", "Great job!", true},
		{"What is 1/2? Think about", "What is 1/2?", true},
		// Decimal points inside numbers do not terminate.
		{"The answer is 3.14 exactly. Next", "The answer is 3.14 exactly.", true},
		{"First. Second. Third.", "First.", true},
		{"Multi\nline. And more", "Multi\nline.", true},
	}
	for _, tt := range tests {
		got, ok := FirstSentence(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FirstSentence(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// Stats can land on the consumer while content chunks are still buffered;
// the assembled response must never cut off at a chunk boundary.
func TestGenerateStreamDeliversCompleteText(t *testing.T) {
	text := "Half plus a quarter is three quarters. " +
		"Picture a pie cut into four equal slices: a half covers two of them, and the quarter adds one more. " +
		"That leaves exactly one slice empty, which is why the sum is three quarters and not a whole."

	for i := 0; i < 50; i++ {
		fake := llmtest.NewFake(llmtest.Respond(text))
		c := NewClient(fake, staticPrompts())

		result, err := c.GenerateStream(context.Background(), &Request{
			Agent: agent.Math, LessonID: "l1", Utterance: "why?",
		})
		if err != nil {
			t.Fatal(err)
		}

		first := <-result.FirstSentence
		if first != "Half plus a quarter is three quarters." {
			t.Fatalf("run %d: first sentence = %q", i, first)
		}

		select {
		case resp := <-result.Done:
			if resp.SpokenText != text {
				t.Fatalf("run %d: full text truncated at %d of %d bytes: %q",
					i, len(resp.SpokenText), len(text), resp.SpokenText)
			}
			if !strings.HasSuffix(resp.DisplayText, "not a whole.") {
				t.Fatalf("run %d: display text = %q", i, resp.DisplayText)
			}
			if resp.Stats == nil {
				t.Fatalf("run %d: stream stats missing", i)
			}
		case err := <-result.Err:
			t.Fatal(err)
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: timed out waiting for completion", i)
		}
	}
}
