package evidence

import (
	"context"
	"testing"

	"github.com/mentora/mentora/ai/core/llm/llmtest"
	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func TestExtractRecordsEvidence(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(
		`{"kind": "correct_answer", "quality": 90, "confidence": 0.9, "topic": "fractions"}`,
	))
	s, _ := storetest.NewStore()
	e := NewExtractor(fake, s)

	ev, err := e.Extract(context.Background(), 7, "math-4-fractions", "s1", "What is 1/2 + 1/4?", "three quarters!")
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil {
		t.Fatal("expected recorded evidence")
	}
	if ev.Kind != store.EvidenceKindCorrectAnswer || ev.Quality != 90 || ev.Topic != "fractions" {
		t.Errorf("evidence = %+v", ev)
	}
	if ev.ID == "" {
		t.Error("evidence id must be assigned")
	}
}

func TestExtractSkipsNone(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(
		`{"kind": "none", "quality": 0, "confidence": 0.9, "topic": ""}`,
	))
	s, _ := storetest.NewStore()
	e := NewExtractor(fake, s)

	ev, err := e.Extract(context.Background(), 7, "l1", "s1", "How are you?", "good thanks")
	if err != nil {
		t.Fatal(err)
	}
	if ev != nil {
		t.Errorf("no-signal turns must not be recorded, got %+v", ev)
	}

	sid := "s1"
	recorded, err := s.ListEvidence(context.Background(), &store.FindEvidence{SessionID: &sid})
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 0 {
		t.Errorf("store should be empty, got %d", len(recorded))
	}
}

func TestClassifyDropsUnknownKind(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(
		`{"kind": "brilliance", "quality": 100, "confidence": 1, "topic": "x"}`,
	))
	s, _ := storetest.NewStore()
	e := NewExtractor(fake, s)

	obs, err := e.Classify(context.Background(), "", "wow")
	if err != nil {
		t.Fatal(err)
	}
	if obs != nil {
		t.Errorf("unknown kinds must be dropped, got %+v", obs)
	}
}

func TestClassifyClampsRanges(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(
		`{"kind": "struggle", "quality": 150, "confidence": 1.5, "topic": "algebra"}`,
	))
	s, _ := storetest.NewStore()
	e := NewExtractor(fake, s)

	obs, err := e.Classify(context.Background(), "", "i don't get it")
	if err != nil {
		t.Fatal(err)
	}
	if obs == nil {
		t.Fatal("expected observation")
	}
	if obs.Quality != 100 || obs.Confidence != 1 {
		t.Errorf("quality/confidence not clamped: %+v", obs)
	}
}

func TestClassifyMalformedOutput(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond("absolutely not json"))
	s, _ := storetest.NewStore()
	e := NewExtractor(fake, s)

	if _, err := e.Classify(context.Background(), "", "hello"); err == nil {
		t.Error("malformed classification must error")
	}
}
