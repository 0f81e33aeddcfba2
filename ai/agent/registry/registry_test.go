package registry

import (
	"context"
	"testing"
	"time"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func seedAgents(t *testing.T, s *store.Store) {
	t.Helper()
	for _, name := range []agent.Name{agent.Coordinator, agent.Math, agent.General} {
		if _, err := s.UpsertAgentDefinition(context.Background(), &store.AgentDefinition{
			Name:           string(name),
			Role:           name.Role(),
			PromptTemplate: "You are " + string(name) + ".",
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRegistryLoadAndGet(t *testing.T) {
	s, _ := storetest.NewStore()
	seedAgents(t, s)
	r := New(s, nil)

	if err := r.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	def, err := r.Definition(context.Background(), agent.Math)
	if err != nil {
		t.Fatal(err)
	}
	if def.Role != store.AgentRoleSpecialist {
		t.Errorf("role = %s, want specialist", def.Role)
	}

	if _, err := r.Definition(context.Background(), agent.Science); err == nil {
		t.Error("unseeded agent should return ErrNotRegistered")
	}
}

func TestRegistrySnapshotStableWithinTTL(t *testing.T) {
	s, _ := storetest.NewStore()
	seedAgents(t, s)
	r := New(s, &Config{TTL: time.Hour})

	if err := r.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap1, err := r.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// A write behind the registry's back is invisible until refresh.
	if _, err := s.UpsertAgentDefinition(context.Background(), &store.AgentDefinition{
		Name: string(agent.Science), Role: store.AgentRoleSpecialist, PromptTemplate: "x",
	}); err != nil {
		t.Fatal(err)
	}

	snap2, err := r.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap1.Generation != snap2.Generation {
		t.Error("snapshot must not change within TTL")
	}
	if snap2.Get(agent.Science) != nil {
		t.Error("stale snapshot must not see new definitions")
	}
}

func TestRegistryInvalidateForcesReload(t *testing.T) {
	s, _ := storetest.NewStore()
	seedAgents(t, s)
	r := New(s, &Config{TTL: time.Hour})

	if err := r.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, _ := r.Current(context.Background())

	if _, err := s.UpsertAgentDefinition(context.Background(), &store.AgentDefinition{
		Name: string(agent.Science), Role: store.AgentRoleSpecialist, PromptTemplate: "x",
	}); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()

	snap, err := r.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Generation == first.Generation {
		t.Error("invalidation must produce a new generation")
	}
	if snap.Get(agent.Science) == nil {
		t.Error("reloaded snapshot must see the new definition")
	}
}

func TestRegistryUpsertInvalidates(t *testing.T) {
	s, _ := storetest.NewStore()
	seedAgents(t, s)
	r := New(s, &Config{TTL: time.Hour})

	if err := r.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Upsert(context.Background(), &store.AgentDefinition{
		Name: string(agent.Math), Role: store.AgentRoleSpecialist, PromptTemplate: "updated",
	}); err != nil {
		t.Fatal(err)
	}

	def, err := r.Definition(context.Background(), agent.Math)
	if err != nil {
		t.Fatal(err)
	}
	if def.PromptTemplate != "updated" {
		t.Errorf("prompt = %q, want updated definition after upsert", def.PromptTemplate)
	}
}

func TestRegistryIgnoresUnknownNames(t *testing.T) {
	s, _ := storetest.NewStore()
	if _, err := s.UpsertAgentDefinition(context.Background(), &store.AgentDefinition{
		Name: "mystery", Role: store.AgentRoleSpecialist, PromptTemplate: "x",
	}); err != nil {
		t.Fatal(err)
	}
	r := New(s, nil)

	if err := r.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ := r.Current(context.Background())
	if len(snap.Names()) != 0 {
		t.Errorf("unknown agent names must be ignored, got %v", snap.Names())
	}
}
