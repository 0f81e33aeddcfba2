package store

import "testing"

func TestMasteryRuleSetValidate(t *testing.T) {
	valid := DefaultMasteryRuleSet("math", 4)
	if err := valid.Validate(); err != nil {
		t.Fatalf("default rule set must validate: %v", err)
	}

	cases := map[string]func(*MasteryRuleSet){
		"empty subject":            func(r *MasteryRuleSet) { r.Subject = "" },
		"negative grade":           func(r *MasteryRuleSet) { r.Grade = -1 },
		"negative correct answers": func(r *MasteryRuleSet) { r.MinCorrectAnswers = -1 },
		"explanation over 100":     func(r *MasteryRuleSet) { r.MinExplanationQuality = 101 },
		"overall quality over 100": func(r *MasteryRuleSet) { r.MinOverallQuality = 150 },
		"struggle ratio over 1":    func(r *MasteryRuleSet) { r.MaxStruggleRatio = 1.5 },
		"negative struggle ratio":  func(r *MasteryRuleSet) { r.MaxStruggleRatio = -0.1 },
		"negative time":            func(r *MasteryRuleSet) { r.MinTimeSpentMinutes = -5 },
	}
	for name, mutate := range cases {
		r := *DefaultMasteryRuleSet("math", 4)
		mutate(&r)
		if err := r.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestMergeTopics(t *testing.T) {
	got := MergeTopics([]string{"a", "b"}, []string{"b", "c", "a"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("MergeTopics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MergeTopics = %v, want %v", got, want)
		}
	}

	// Re-merging is idempotent.
	again := MergeTopics(got, []string{"c", "a"})
	if len(again) != len(got) {
		t.Errorf("re-merge duplicated topics: %v", again)
	}
}
