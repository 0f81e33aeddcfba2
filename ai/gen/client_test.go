package gen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm/llmtest"
	"github.com/mentora/mentora/ai/promptcache"
)

func staticPrompts() *promptcache.Manager {
	return promptcache.NewManager(func(_ context.Context, name agent.Name, lessonID string) (string, error) {
		return "You are the " + string(name) + " tutor for lesson " + lessonID + ".", nil
	}, nil)
}

func TestGenerateParsesSchema(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(
		`{"spoken_text": "Half plus a quarter is three quarters.", "display_text": "1/2 + 1/4 = 3/4", "lesson_complete": true}`,
	))
	c := NewClient(fake, staticPrompts())

	resp, err := c.Generate(context.Background(), &Request{
		Agent:     agent.Math,
		LessonID:  "math-4-fractions",
		Utterance: "what is 1/2 + 1/4?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SpokenText != "Half plus a quarter is three quarters." {
		t.Errorf("spoken = %q", resp.SpokenText)
	}
	if resp.DisplayText != "1/2 + 1/4 = 3/4" {
		t.Errorf("display = %q", resp.DisplayText)
	}
	if !resp.ModelClaimsComplete {
		t.Error("model completion claim should be recorded")
	}
}

func TestGenerateRetriesOnceOnMalformedOutput(t *testing.T) {
	fake := llmtest.NewFake(
		llmtest.Respond("sure! here you go"),
		llmtest.Respond(`{"spoken_text": "Second try.", "display_text": "Second try."}`),
	)
	c := NewClient(fake, staticPrompts())

	resp, err := c.Generate(context.Background(), &Request{
		Agent: agent.Math, LessonID: "l1", Utterance: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SpokenText != "Second try." {
		t.Errorf("spoken = %q", resp.SpokenText)
	}
	if fake.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", fake.CallCount())
	}
}

func TestGenerateSchemaViolationAfterRetry(t *testing.T) {
	fake := llmtest.NewFake(
		llmtest.Respond("not json"),
		llmtest.Respond("still not json"),
	)
	c := NewClient(fake, staticPrompts())

	_, err := c.Generate(context.Background(), &Request{
		Agent: agent.Math, LessonID: "l1", Utterance: "hi",
	})
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("err = %v, want ErrSchemaViolation", err)
	}
}

func TestGenerateMirrorsMissingTextForms(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"spoken_text": "Only spoken."}`))
	c := NewClient(fake, staticPrompts())

	resp, err := c.Generate(context.Background(), &Request{
		Agent: agent.Math, LessonID: "l1", Utterance: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.DisplayText != "Only spoken." {
		t.Errorf("display should mirror spoken, got %q", resp.DisplayText)
	}
}

func TestGeneratePromptContainsDirectivesAndFixes(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"spoken_text": "ok", "display_text": "ok"}`))
	c := NewClient(fake, staticPrompts())

	_, err := c.Generate(context.Background(), &Request{
		Agent:         agent.Math,
		LessonID:      "l1",
		Utterance:     "hi",
		Directives:    []string{"Use a diagram."},
		RequiredFixes: []string{"Correct the sum."},
	})
	if err != nil {
		t.Fatal(err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	system := calls[0].Messages[0].Content
	for _, want := range []string{"You are the math tutor", "Use a diagram.", "Correct the sum."} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestGenerateStreamFirstSentenceEarly(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond("Great question! Let us work through it together step by step."))
	c := NewClient(fake, staticPrompts())

	result, err := c.GenerateStream(context.Background(), &Request{
		Agent: agent.Math, LessonID: "l1", Utterance: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}

	first := <-result.FirstSentence
	if first != "Great question!" {
		t.Errorf("first sentence = %q", first)
	}

	select {
	case resp := <-result.Done:
		if !strings.HasPrefix(resp.SpokenText, "Great question!") {
			t.Errorf("full text = %q", resp.SpokenText)
		}
	case err := <-result.Err:
		t.Fatal(err)
	}
}
