package enrichment

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func seedEvidence(t *testing.T, s *store.Store, sessionID, topic string, kind store.EvidenceKind, quality, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := s.CreateEvidence(context.Background(), &store.Evidence{
			LearnerID: 7,
			LessonID:  "math-4-fractions",
			SessionID: sessionID,
			Kind:      kind,
			Topic:     topic,
			Quality:   quality,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnrichAddsStruggleCluster(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, nil)

	seedEvidence(t, s, "s1", "fractions", store.EvidenceKindIncorrectAnswer, 20, 3)
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || !reflect.DeepEqual(profile.Struggles, []string{"fractions"}) {
		t.Fatalf("expected fractions struggle, got %+v", profile)
	}
}

func TestEnrichAddsStrengthCluster(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, nil)

	seedEvidence(t, s, "s1", "decimals", store.EvidenceKindCorrectAnswer, 95, 3)
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || !reflect.DeepEqual(profile.Strengths, []string{"decimals"}) {
		t.Fatalf("expected decimals strength, got %+v", profile)
	}
}

func TestEnrichBelowThresholdNoWrite(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, nil)

	seedEvidence(t, s, "s1", "fractions", store.EvidenceKindIncorrectAnswer, 20, 2)
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile != nil {
		t.Fatalf("two signals are below the cluster threshold, got %+v", profile)
	}
}

// Enriching twice over the same evidence window must not duplicate topics.
func TestEnrichIdempotent(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, nil)

	seedEvidence(t, s, "s1", "fractions", store.EvidenceKindStruggle, 30, 3)
	e.EnrichIfNeeded(context.Background(), 7, "s1")
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("expected profile write")
	}
	if !reflect.DeepEqual(profile.Struggles, []string{"fractions"}) {
		t.Fatalf("struggles duplicated: %v", profile.Struggles)
	}
}

func TestEnrichStruggleKindCountsRegardlessOfQuality(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, nil)

	// Struggle-kind records with high quality scores still signal struggle.
	seedEvidence(t, s, "s1", "algebra", store.EvidenceKindStruggle, 90, 3)
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || len(profile.Struggles) != 1 {
		t.Fatalf("expected algebra struggle, got %+v", profile)
	}
}

func TestEnrichBothClustersInOneWindow(t *testing.T) {
	s, _ := storetest.NewStore()
	e := New(s, &Config{Window: 10, ClusterThreshold: 3, LowQualityBelow: 40, HighQualityAtLeast: 85})

	seedEvidence(t, s, "s1", "fractions", store.EvidenceKindIncorrectAnswer, 10, 3)
	seedEvidence(t, s, "s1", "addition", store.EvidenceKindCorrectAnswer, 90, 3)
	e.EnrichIfNeeded(context.Background(), 7, "s1")

	profile, err := s.GetLearnerProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("expected profile write")
	}
	got := append(append([]string{}, profile.Struggles...), profile.Strengths...)
	sort.Strings(got)
	want := []string{"addition", "fractions"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
}
