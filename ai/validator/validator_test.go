package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm/llmtest"
	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func approvedVerdict() string {
	return `{"factual": true, "level": true, "consistent": true, "ordering": true, "diagram": true, "confidence": 0.95, "required_fixes": []}`
}

func rejectedVerdict(fix string) string {
	return fmt.Sprintf(`{"factual": false, "level": true, "consistent": true, "ordering": true, "diagram": true, "confidence": 0.4, "required_fixes": [%q]}`, fix)
}

func noRegen(t *testing.T) RegenFunc {
	return func(context.Context, []string) (string, string, string, error) {
		t.Fatal("regen must not be called")
		return "", "", "", nil
	}
}

func specialistInput() *Input {
	return &Input{
		SessionID:   "s1",
		Agent:       agent.Math,
		LessonTitle: "Fractions",
		Grade:       4,
		Utterance:   "what is 1/2 + 1/4?",
		SpokenText:  "One half plus one quarter is three quarters.",
		DisplayText: "1/2 + 1/4 = 3/4",
	}
}

func TestValidateApproved(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(approvedVerdict()))
	s, driver := storetest.NewStore()
	v := New(fake, s, nil)

	out := v.Validate(context.Background(), specialistInput(), noRegen(t))
	if out.State != StateApproved {
		t.Fatalf("state = %s, want approved", out.State)
	}
	if out.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", out.Attempts)
	}

	audits := driver.Audits()
	if len(audits) != 1 || audits[0].Outcome != store.ValidationOutcomeApproved {
		t.Errorf("expected one approved audit, got %+v", audits)
	}
}

func TestValidateNonSpecialistSkips(t *testing.T) {
	fake := llmtest.NewFake()
	s, driver := storetest.NewStore()
	v := New(fake, s, nil)

	in := specialistInput()
	in.Agent = agent.Motivator
	out := v.Validate(context.Background(), in, noRegen(t))

	if out.State != StateApproved {
		t.Fatalf("state = %s, want approved", out.State)
	}
	if fake.CallCount() != 0 {
		t.Error("non-specialist drafts must not invoke the validator model")
	}
	if len(driver.Audits()) != 0 {
		t.Error("skipped validation must not write an audit")
	}
}

func TestValidateLowConfidenceRejects(t *testing.T) {
	// All five checks pass but confidence is below the approval threshold.
	lowConfidence := `{"factual": true, "level": true, "consistent": true, "ordering": true, "diagram": true, "confidence": 0.7, "required_fixes": []}`
	fake := llmtest.NewFake(
		llmtest.Respond(lowConfidence),
		llmtest.Respond(approvedVerdict()),
	)
	s, _ := storetest.NewStore()
	v := New(fake, s, nil)

	regenerated := false
	out := v.Validate(context.Background(), specialistInput(), func(_ context.Context, fixes []string) (string, string, string, error) {
		regenerated = true
		return "Regenerated spoken.", "Regenerated display.", "", nil
	})

	if !regenerated {
		t.Fatal("low confidence must trigger regeneration")
	}
	if out.State != StateApproved {
		t.Fatalf("state = %s, want approved after regeneration", out.State)
	}
	if out.SpokenText != "Regenerated spoken." {
		t.Errorf("regenerated draft not delivered: %q", out.SpokenText)
	}
}

func TestValidateRejectedTwiceDeliversWithDisclaimer(t *testing.T) {
	fake := llmtest.NewFake(
		llmtest.Respond(rejectedVerdict("fix the sum")),
		llmtest.Respond(rejectedVerdict("still wrong")),
		llmtest.Respond(rejectedVerdict("no better")),
	)
	s, driver := storetest.NewStore()
	v := New(fake, s, nil)

	regens := 0
	out := v.Validate(context.Background(), specialistInput(), func(_ context.Context, fixes []string) (string, string, string, error) {
		regens++
		return fmt.Sprintf("Attempt %d spoken.", regens), fmt.Sprintf("Attempt %d display.", regens), "", nil
	})

	if regens != 2 {
		t.Fatalf("regens = %d, want exactly 2", regens)
	}
	if out.State != StateRejectedFinal {
		t.Fatalf("state = %s, want rejected_final", out.State)
	}
	if !strings.Contains(out.SpokenText, Disclaimer) {
		t.Error("final rejection must carry the disclaimer")
	}
	if !strings.Contains(out.SpokenText, "Attempt 2") {
		t.Errorf("last regenerated draft must be delivered, got %q", out.SpokenText)
	}

	var finals int
	for _, a := range driver.Audits() {
		if a.Outcome == store.ValidationOutcomeRejectedFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("expected one rejected_final audit, got %d", finals)
	}
}

func TestValidateTimeoutFailsOpen(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Fail(context.DeadlineExceeded))
	s, driver := storetest.NewStore()
	v := New(fake, s, &Config{Timeout: 10 * time.Millisecond})

	in := specialistInput()
	out := v.Validate(context.Background(), in, noRegen(t))

	if out.State != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", out.State)
	}
	if out.SpokenText != in.SpokenText {
		t.Error("timed-out draft must be delivered unmodified")
	}

	audits := driver.Audits()
	if len(audits) != 1 || audits[0].Outcome != store.ValidationOutcomeTimedOut {
		t.Errorf("expected one timed_out audit, got %+v", audits)
	}
}

func TestValidateUpstreamErrorFailsOpen(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Fail(errors.New("upstream down")))
	s, _ := storetest.NewStore()
	v := New(fake, s, nil)

	in := specialistInput()
	out := v.Validate(context.Background(), in, noRegen(t))

	if out.State != StateTimedOut {
		t.Fatalf("state = %s, want fail-open timed_out", out.State)
	}
	if out.SpokenText != in.SpokenText {
		t.Error("draft must be delivered unmodified on validator failure")
	}
}
