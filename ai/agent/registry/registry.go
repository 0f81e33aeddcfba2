// Package registry maintains the in-memory view of agent definitions.
//
// Definitions load from storage into an immutable snapshot that readers
// access without locking. Reloads build a fresh snapshot and swap it in
// atomically, so turns in flight keep the generation they started with.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/store"
)

// ErrNotRegistered is returned when no definition exists for an agent.
type ErrNotRegistered struct {
	Agent agent.Name
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("agent %q has no registered definition", e.Agent)
}

// Snapshot is one immutable generation of agent definitions.
type Snapshot struct {
	Generation int64
	LoadedAt   time.Time
	defs       map[agent.Name]*store.AgentDefinition
}

// Get returns the definition for an agent, or nil if absent.
func (s *Snapshot) Get(name agent.Name) *store.AgentDefinition {
	return s.defs[name]
}

// Names lists agents present in this snapshot.
func (s *Snapshot) Names() []agent.Name {
	names := make([]agent.Name, 0, len(s.defs))
	for n := range s.defs {
		names = append(names, n)
	}
	return names
}

// Config represents registry configuration.
type Config struct {
	// TTL is how long a snapshot stays fresh before the next read triggers
	// a reload. Default: 5 minutes.
	TTL time.Duration
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() *Config {
	return &Config{TTL: 5 * time.Minute}
}

// Registry serves agent definitions with TTL-based refresh.
type Registry struct {
	store      *store.Store
	ttl        time.Duration
	current    atomic.Pointer[Snapshot]
	generation atomic.Int64

	reloadMu sync.Mutex // serializes reloads, readers never block on it
}

// New creates a Registry. Call Load before serving.
func New(s *store.Store, cfg *Config) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Registry{store: s, ttl: cfg.TTL}
}

// Load builds a fresh snapshot from storage and swaps it in.
func (r *Registry) Load(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	return r.reload(ctx)
}

// reload must be called with reloadMu held.
func (r *Registry) reload(ctx context.Context) error {
	defs, err := r.store.ListAgentDefinitions(ctx, &store.FindAgentDefinition{})
	if err != nil {
		return fmt.Errorf("registry: list agent definitions: %w", err)
	}

	byName := make(map[agent.Name]*store.AgentDefinition, len(defs))
	for _, def := range defs {
		name := agent.Name(def.Name)
		if !agent.Valid(def.Name) {
			slog.Warn("registry: ignoring unknown agent definition", "name", def.Name)
			continue
		}
		byName[name] = def
	}

	snap := &Snapshot{
		Generation: r.generation.Add(1),
		LoadedAt:   time.Now(),
		defs:       byName,
	}
	r.current.Store(snap)
	slog.Info("registry: loaded agent definitions", "count", len(byName), "generation", snap.Generation)
	return nil
}

// Current returns the active snapshot, refreshing it first if stale. A failed
// refresh keeps serving the previous snapshot so reads never fail once the
// registry has loaded at least once.
func (r *Registry) Current(ctx context.Context) (*Snapshot, error) {
	snap := r.current.Load()
	if snap != nil && time.Since(snap.LoadedAt) < r.ttl {
		return snap, nil
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	// Another caller may have refreshed while we waited.
	if snap = r.current.Load(); snap != nil && time.Since(snap.LoadedAt) < r.ttl {
		return snap, nil
	}

	if err := r.reload(ctx); err != nil {
		if snap != nil {
			slog.Error("registry: refresh failed, serving stale snapshot",
				"error", err, "age", time.Since(snap.LoadedAt).String())
			return snap, nil
		}
		return nil, err
	}
	return r.current.Load(), nil
}

// Definition returns the definition for one agent from the active snapshot.
func (r *Registry) Definition(ctx context.Context, name agent.Name) (*store.AgentDefinition, error) {
	snap, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	def := snap.Get(name)
	if def == nil {
		return nil, &ErrNotRegistered{Agent: name}
	}
	return def, nil
}

// Invalidate forces the next read to reload from storage.
func (r *Registry) Invalidate() {
	snap := r.current.Load()
	if snap == nil {
		return
	}
	expired := *snap
	expired.LoadedAt = time.Time{}
	r.current.Store(&expired)
	slog.Debug("registry: snapshot invalidated", "generation", snap.Generation)
}

// Upsert writes a definition through to storage and invalidates the snapshot.
func (r *Registry) Upsert(ctx context.Context, def *store.AgentDefinition) (*store.AgentDefinition, error) {
	saved, err := r.store.UpsertAgentDefinition(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("registry: upsert agent definition: %w", err)
	}
	r.Invalidate()
	return saved, nil
}
