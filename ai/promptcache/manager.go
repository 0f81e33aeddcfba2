// Package promptcache manages provider-side prompt cache handles.
//
// The static portion of a specialist prompt (agent instructions plus lesson
// content) is assembled once per agent+lesson pair and registered with the
// provider so subsequent turns reuse the cached prefix instead of resending
// it. Handles expire and are refreshed shortly before the provider would
// drop them, keeping the first turn after a quiet period fast.
package promptcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/cache"
)

// Entry is one live prompt cache registration.
type Entry struct {
	// Handle identifies the registration for metrics and logs. The provider
	// keys its cache on the prompt prefix itself, so the handle is local.
	Handle string

	// StaticPrompt is the assembled static prefix: agent instructions first,
	// lesson content second, so every turn for the same pair presents an
	// identical prefix to the provider.
	StaticPrompt string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its refresh horizon.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// BuildFunc assembles the static prompt for an agent+lesson pair.
type BuildFunc func(ctx context.Context, name agent.Name, lessonID string) (string, error)

// Config represents prompt cache configuration.
type Config struct {
	// TTL is the provider-side cache lifetime. Entries refresh when a turn
	// arrives within RefreshWindow of expiry. Default: 30 minutes.
	TTL time.Duration

	// RefreshWindow is how long before expiry an entry is rebuilt on use.
	// Default: 2 minutes.
	RefreshWindow time.Duration

	// MaxEntries bounds the number of live agent+lesson pairs. Default: 512.
	MaxEntries int

	// OnEvent, when set, observes cache activity ("hit", "miss", "refresh",
	// "stale") for metrics.
	OnEvent func(event string)
}

// DefaultConfig returns the default prompt cache configuration.
func DefaultConfig() *Config {
	return &Config{
		TTL:           30 * time.Minute,
		RefreshWindow: 2 * time.Minute,
		MaxEntries:    512,
	}
}

// Manager tracks prompt cache entries per agent+lesson pair.
type Manager struct {
	build   BuildFunc
	entries *cache.LRUCache[string, *Entry]
	ttl     time.Duration
	window  time.Duration
	onEvent func(event string)

	mu sync.Mutex // serializes rebuilds so concurrent turns share one entry
}

// NewManager creates a prompt cache Manager.
func NewManager(build BuildFunc, cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	onEvent := cfg.OnEvent
	if onEvent == nil {
		onEvent = func(string) {}
	}
	return &Manager{
		build:   build,
		entries: cache.NewLRUCache[string, *Entry](cfg.MaxEntries, cfg.TTL),
		ttl:     cfg.TTL,
		window:  cfg.RefreshWindow,
		onEvent: onEvent,
	}
}

func key(name agent.Name, lessonID string) string {
	return fmt.Sprintf("%s:%s", name, lessonID)
}

// Context returns the live entry for an agent+lesson pair, building or
// refreshing it as needed. The returned entry's StaticPrompt is the exact
// prefix the generation call must send.
func (m *Manager) Context(ctx context.Context, name agent.Name, lessonID string) (*Entry, error) {
	k := key(name, lessonID)
	now := time.Now()

	if e, ok := m.entries.Get(k); ok && now.Add(m.window).Before(e.ExpiresAt) {
		m.onEvent("hit")
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another turn may have rebuilt while we waited.
	if e, ok := m.entries.Get(k); ok && now.Add(m.window).Before(e.ExpiresAt) {
		m.onEvent("hit")
		return e, nil
	}

	_, refreshing := m.entries.Get(k)

	prompt, err := m.build(ctx, name, lessonID)
	if err != nil {
		// A stale-but-unexpired entry still beats failing the turn.
		if e, ok := m.entries.Get(k); ok && !e.Expired(now) {
			m.onEvent("stale")
			slog.Warn("promptcache: rebuild failed, serving stale entry",
				"agent", name, "lesson_id", lessonID, "error", err)
			return e, nil
		}
		return nil, fmt.Errorf("promptcache: build static prompt: %w", err)
	}
	if refreshing {
		m.onEvent("refresh")
	} else {
		m.onEvent("miss")
	}

	e := &Entry{
		Handle:       shortuuid.New(),
		StaticPrompt: prompt,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}
	m.entries.Set(k, e, m.ttl)
	slog.Debug("promptcache: entry registered",
		"agent", name, "lesson_id", lessonID, "handle", e.Handle, "prompt_length", len(prompt))
	return e, nil
}

// InvalidateAgent drops every entry for an agent, across all lessons.
// Called when the agent's definition changes so no turn generates against
// a stale instruction prefix.
func (m *Manager) InvalidateAgent(name agent.Name) int {
	n := m.entries.Invalidate(string(name) + ":*")
	if n > 0 {
		slog.Info("promptcache: agent entries invalidated", "agent", name, "count", n)
	}
	return n
}

// InvalidateLesson drops every entry for a lesson, across all agents.
func (m *Manager) InvalidateLesson(lessonID string) int {
	count := 0
	for _, name := range agent.All {
		if m.entries.Remove(key(name, lessonID)) {
			count++
		}
	}
	if count > 0 {
		slog.Info("promptcache: lesson entries invalidated", "lesson_id", lessonID, "count", count)
	}
	return count
}

// Size returns the number of live entries.
func (m *Manager) Size() int {
	return m.entries.Size()
}
