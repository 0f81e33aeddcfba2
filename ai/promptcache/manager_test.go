package promptcache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mentora/mentora/ai/agent"
)

func countingBuilder(builds *atomic.Int64) BuildFunc {
	return func(_ context.Context, name agent.Name, lessonID string) (string, error) {
		builds.Add(1)
		return fmt.Sprintf("prompt for %s on %s", name, lessonID), nil
	}
}

func TestContextReusesEntry(t *testing.T) {
	var builds atomic.Int64
	m := NewManager(countingBuilder(&builds), nil)

	first, err := m.Context(context.Background(), agent.Math, "l1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Context(context.Background(), agent.Math, "l1")
	if err != nil {
		t.Fatal(err)
	}

	if builds.Load() != 1 {
		t.Errorf("builds = %d, want 1", builds.Load())
	}
	if first.Handle != second.Handle {
		t.Error("same pair must reuse the entry")
	}
	if first.StaticPrompt != "prompt for math on l1" {
		t.Errorf("prompt = %q", first.StaticPrompt)
	}
}

func TestContextSeparatePerPair(t *testing.T) {
	var builds atomic.Int64
	m := NewManager(countingBuilder(&builds), nil)

	a, _ := m.Context(context.Background(), agent.Math, "l1")
	b, _ := m.Context(context.Background(), agent.Math, "l2")
	c, _ := m.Context(context.Background(), agent.Science, "l1")

	if a.Handle == b.Handle || a.Handle == c.Handle {
		t.Error("each agent+lesson pair gets its own entry")
	}
	if builds.Load() != 3 {
		t.Errorf("builds = %d, want 3", builds.Load())
	}
}

func TestContextRefreshesNearExpiry(t *testing.T) {
	var builds atomic.Int64
	m := NewManager(countingBuilder(&builds), &Config{
		TTL:           30 * time.Millisecond,
		RefreshWindow: 25 * time.Millisecond,
		MaxEntries:    8,
	})

	first, err := m.Context(context.Background(), agent.Math, "l1")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	// Inside the refresh window now: the entry rebuilds before expiry.
	second, err := m.Context(context.Background(), agent.Math, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Handle == second.Handle {
		t.Error("entry within the refresh window must be rebuilt")
	}
	if builds.Load() != 2 {
		t.Errorf("builds = %d, want 2", builds.Load())
	}
}

func TestInvalidateAgentDropsAllLessons(t *testing.T) {
	var builds atomic.Int64
	m := NewManager(countingBuilder(&builds), nil)

	if _, err := m.Context(context.Background(), agent.Math, "l1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Context(context.Background(), agent.Math, "l2"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Context(context.Background(), agent.Science, "l1"); err != nil {
		t.Fatal(err)
	}

	if n := m.InvalidateAgent(agent.Math); n != 2 {
		t.Errorf("InvalidateAgent = %d, want 2", n)
	}
	if m.Size() != 1 {
		t.Errorf("size = %d, want 1", m.Size())
	}
}

func TestInvalidateLessonDropsAllAgents(t *testing.T) {
	var builds atomic.Int64
	m := NewManager(countingBuilder(&builds), nil)

	if _, err := m.Context(context.Background(), agent.Math, "l1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Context(context.Background(), agent.Science, "l1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Context(context.Background(), agent.Math, "l2"); err != nil {
		t.Fatal(err)
	}

	if n := m.InvalidateLesson("l1"); n != 2 {
		t.Errorf("InvalidateLesson = %d, want 2", n)
	}
	if m.Size() != 1 {
		t.Errorf("size = %d, want 1", m.Size())
	}
}

func TestContextBuildFailure(t *testing.T) {
	m := NewManager(func(context.Context, agent.Name, string) (string, error) {
		return "", errors.New("registry unavailable")
	}, nil)

	if _, err := m.Context(context.Background(), agent.Math, "l1"); err == nil {
		t.Fatal("build failure with no prior entry must propagate")
	}
}
