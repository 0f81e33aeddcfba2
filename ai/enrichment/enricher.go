// Package enrichment keeps the long-lived learner profile in step with
// recent evidence.
//
// The enricher runs as a background task after each turn. It can never fail
// the learner-facing turn: every error is caught and logged here.
package enrichment

import (
	"context"
	"log/slog"

	"github.com/mentora/mentora/store"
)

// Config represents enricher configuration.
type Config struct {
	// Window is how many recent evidence records to scan. Default: 10.
	Window int

	// ClusterThreshold is how many records about one topic must cluster in
	// the window before the topic is written to the profile. Default: 3.
	ClusterThreshold int

	// LowQualityBelow marks a record as a struggle signal. Default: 40.
	LowQualityBelow int

	// HighQualityAtLeast marks a record as a strength signal. Default: 85.
	HighQualityAtLeast int
}

// DefaultConfig returns the default enricher configuration.
func DefaultConfig() *Config {
	return &Config{
		Window:             10,
		ClusterThreshold:   3,
		LowQualityBelow:    40,
		HighQualityAtLeast: 85,
	}
}

// Enricher scans recent evidence for struggle and strength patterns.
type Enricher struct {
	store *store.Store
	cfg   *Config
}

// New creates an Enricher.
func New(s *store.Store, cfg *Config) *Enricher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Enricher{store: s, cfg: cfg}
}

// EnrichIfNeeded scans the session's recent evidence window and updates the
// learner profile when a topic clusters. Writes use set-union semantics, so
// re-running over the same window is idempotent. On any write the learner
// profile cache is invalidated before this function returns, so the next
// turn observes fresh state.
//
// Never returns an error: failures are logged and swallowed.
func (e *Enricher) EnrichIfNeeded(ctx context.Context, learnerID int32, sessionID string) {
	evidence, err := e.store.ListEvidence(ctx, &store.FindEvidence{
		SessionID: &sessionID,
		Limit:     e.cfg.Window,
	})
	if err != nil {
		slog.Error("enricher: list evidence failed", "session_id", sessionID, "error", err)
		return
	}
	if len(evidence) == 0 {
		return
	}

	struggles, strengths := e.clusters(evidence)
	if len(struggles) == 0 && len(strengths) == 0 {
		return
	}

	_, err = e.store.UpdateLearnerProfile(ctx, &store.UpdateLearnerProfile{
		LearnerID:    learnerID,
		AddStruggles: struggles,
		AddStrengths: strengths,
	})
	if err != nil {
		slog.Error("enricher: profile update failed", "learner_id", learnerID, "error", err)
		return
	}

	// The store invalidates the learner profile cache synchronously on
	// write, so the very next read misses rather than serving stale state.
	slog.Info("enricher: profile updated",
		"learner_id", learnerID, "session_id", sessionID,
		"struggles", struggles, "strengths", strengths)
}

// clusters counts per-topic signals in the window and returns topics that
// reach the cluster threshold.
func (e *Enricher) clusters(evidence []*store.Evidence) (struggles, strengths []string) {
	lowByTopic := map[string]int{}
	highByTopic := map[string]int{}

	for _, ev := range evidence {
		if ev.Topic == "" {
			continue
		}
		// Struggle-kind evidence counts as a low-quality signal regardless
		// of its quality score.
		if ev.Kind == store.EvidenceKindStruggle || ev.Quality < e.cfg.LowQualityBelow {
			lowByTopic[ev.Topic]++
			continue
		}
		if ev.Quality >= e.cfg.HighQualityAtLeast {
			highByTopic[ev.Topic]++
		}
	}

	for topic, n := range lowByTopic {
		if n >= e.cfg.ClusterThreshold {
			struggles = append(struggles, topic)
		}
	}
	for topic, n := range highByTopic {
		if n >= e.cfg.ClusterThreshold {
			strengths = append(strengths, topic)
		}
	}
	return struggles, strengths
}
