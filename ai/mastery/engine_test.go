package mastery

import (
	"context"
	"testing"
	"time"

	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func evidenceOf(kind store.EvidenceKind, quality int, n int) []*store.Evidence {
	out := make([]*store.Evidence, n)
	for i := range out {
		out[i] = &store.Evidence{Kind: kind, Quality: quality}
	}
	return out
}

func TestEvaluateAllCriteriaRequired(t *testing.T) {
	rules := &store.MasteryRuleSet{
		MinCorrectAnswers:      3,
		MinExplanationQuality:  70,
		MinApplicationAttempts: 2,
		MinOverallQuality:      75,
		MaxStruggleRatio:       0.3,
		MinTimeSpentMinutes:    5,
	}

	passing := EvidenceSummary{
		TotalEvidence:         7,
		CorrectAnswers:        4,
		ExplanationCount:      1,
		AvgExplanationQuality: 80,
		ApplicationCount:      2,
		AvgOverallQuality:     82,
		StruggleRatio:         0.1,
		TimeSpentMinutes:      8,
	}
	if det := Evaluate(passing, rules); !det.HasMastered {
		t.Fatalf("expected mastery, criteria: %+v", det.CriteriaMet)
	}

	// Flipping any single criterion to false forces hasMastered false.
	cases := map[string]func(*EvidenceSummary){
		"correct answers":     func(s *EvidenceSummary) { s.CorrectAnswers = 2 },
		"explanation quality": func(s *EvidenceSummary) { s.AvgExplanationQuality = 50 },
		"applications":        func(s *EvidenceSummary) { s.ApplicationCount = 1 },
		"overall quality":     func(s *EvidenceSummary) { s.AvgOverallQuality = 60 },
		"struggle ratio":      func(s *EvidenceSummary) { s.StruggleRatio = 0.5 },
		"time spent":          func(s *EvidenceSummary) { s.TimeSpentMinutes = 3 },
	}
	for name, mutate := range cases {
		sum := passing
		mutate(&sum)
		if det := Evaluate(sum, rules); det.HasMastered {
			t.Errorf("%s: expected no mastery when criterion fails", name)
		}
	}
}

// Four correct answers, two applications, average quality 82, struggle
// ratio 0.1, eight minutes elapsed, but zero explanation records. The
// explanation average is therefore 0, failing that single criterion while
// the other five pass.
func TestEvaluateZeroExplanationsFailsMastery(t *testing.T) {
	rules := &store.MasteryRuleSet{
		MinCorrectAnswers:      3,
		MinExplanationQuality:  70,
		MinApplicationAttempts: 2,
		MinOverallQuality:      75,
		MaxStruggleRatio:       0.3,
		MinTimeSpentMinutes:    5,
	}

	sum := EvidenceSummary{
		TotalEvidence:     10,
		CorrectAnswers:    4,
		ExplanationCount:  0,
		ApplicationCount:  2,
		AvgOverallQuality: 82,
		StruggleRatio:     0.1,
		TimeSpentMinutes:  8,
	}

	det := Evaluate(sum, rules)
	if det.HasMastered {
		t.Fatal("expected no mastery with zero explanation evidence")
	}
	if det.CriteriaMet.ExplanationQuality {
		t.Error("explanation quality criterion should fail")
	}
	if !det.CriteriaMet.EnoughCorrectAnswers || !det.CriteriaMet.EnoughApplications ||
		!det.CriteriaMet.OverallQuality || !det.CriteriaMet.StruggleRatioInBounds ||
		!det.CriteriaMet.EnoughTimeSpent {
		t.Errorf("all other criteria should pass, got %+v", det.CriteriaMet)
	}
	if det.Confidence != 1.0 {
		t.Errorf("confidence must always be 1.0, got %f", det.Confidence)
	}
}

func TestSummarize(t *testing.T) {
	var evidence []*store.Evidence
	evidence = append(evidence, evidenceOf(store.EvidenceKindCorrectAnswer, 90, 4)...)
	evidence = append(evidence, evidenceOf(store.EvidenceKindExplanation, 80, 2)...)
	evidence = append(evidence, evidenceOf(store.EvidenceKindApplication, 70, 2)...)
	evidence = append(evidence, evidenceOf(store.EvidenceKindStruggle, 10, 2)...)

	start := time.Now().Add(-10 * time.Minute)
	sum := Summarize(evidence, time.Now(), start)

	if sum.TotalEvidence != 10 {
		t.Errorf("total = %d, want 10", sum.TotalEvidence)
	}
	if sum.CorrectAnswers != 4 {
		t.Errorf("correct = %d, want 4", sum.CorrectAnswers)
	}
	if sum.AvgExplanationQuality != 80 {
		t.Errorf("explanation quality = %f, want 80", sum.AvgExplanationQuality)
	}
	if sum.StruggleRatio != 0.2 {
		t.Errorf("struggle ratio = %f, want 0.2", sum.StruggleRatio)
	}
	if sum.TimeSpentMinutes < 9.9 || sum.TimeSpentMinutes > 10.1 {
		t.Errorf("time spent = %f, want ~10", sum.TimeSpentMinutes)
	}
}

func TestSummarizeEmptyEvidence(t *testing.T) {
	sum := Summarize(nil, time.Now(), time.Now().Add(-5*time.Minute))
	if sum.AvgExplanationQuality != 0 || sum.AvgOverallQuality != 0 || sum.StruggleRatio != 0 {
		t.Errorf("empty evidence must yield zero statistics, got %+v", sum)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rules := store.DefaultMasteryRuleSet("math", 4)
	sum := EvidenceSummary{
		TotalEvidence:         5,
		CorrectAnswers:        3,
		ExplanationCount:      1,
		AvgExplanationQuality: 75,
		ApplicationCount:      2,
		AvgOverallQuality:     80,
		StruggleRatio:         0.2,
		TimeSpentMinutes:      6,
	}
	a := Evaluate(sum, rules)
	b := Evaluate(sum, rules)
	if a.HasMastered != b.HasMastered || a.CriteriaMet != b.CriteriaMet {
		t.Error("evaluation must be deterministic for identical input")
	}
}

func TestScoreBounds(t *testing.T) {
	if got := Score(EvidenceSummary{}); got != 0 {
		t.Errorf("empty summary score = %d, want 0", got)
	}
	perfect := EvidenceSummary{
		TotalEvidence:     5,
		CorrectAnswers:    5,
		AvgOverallQuality: 100,
	}
	if got := Score(perfect); got != 100 {
		t.Errorf("perfect score = %d, want 100", got)
	}
}

func TestDetermineMasteryFallsBackToDefaultRules(t *testing.T) {
	s, _ := storetest.NewStore()
	engine := NewEngine(s)
	ctx := context.Background()

	lessonID := "math-4-fractions"
	for i := 0; i < 4; i++ {
		if _, err := s.CreateEvidence(ctx, &store.Evidence{
			LearnerID: 7, LessonID: lessonID, SessionID: "s1",
			Kind: store.EvidenceKindCorrectAnswer, Quality: 90,
		}); err != nil {
			t.Fatal(err)
		}
	}

	det, err := engine.DetermineMastery(ctx, 7, lessonID, "math", 4, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if det.Rules.MinCorrectAnswers != store.DefaultMasteryRuleSet("math", 4).MinCorrectAnswers {
		t.Error("expected default rule set when none configured")
	}
	if det.HasMastered {
		t.Error("correct answers alone must not grant mastery")
	}
}
