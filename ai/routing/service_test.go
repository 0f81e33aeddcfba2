package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/core/llm/llmtest"
	"github.com/mentora/mentora/store"
	"github.com/mentora/mentora/store/storetest"
)

func TestRouteFullRouteOnNewSession(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"agent": "math", "reason": "fractions question"}`))
	s, _ := storetest.NewStore()
	svc := NewService(fake, s)

	d, err := svc.Route(context.Background(), "s1", "can you help me with fractions?")
	require.NoError(t, err)
	assert.Equal(t, agent.Math, d.Agent)
	assert.False(t, d.FastPath, "first route must not be fast path")

	state, err := s.GetRoutingState(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, state, "routing state not persisted")
	assert.Equal(t, "math", state.ActiveAgent)
}

// Given no handoff signal, the agent for turn N+1 equals the agent for
// turn N, without a model call.
func TestRouteFastPathStable(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"agent": "math", "reason": "fractions"}`))
	s, _ := storetest.NewStore()
	svc := NewService(fake, s)

	first, err := svc.Route(context.Background(), "s1", "help me with this problem")
	require.NoError(t, err)
	callsAfterFirst := fake.CallCount()

	for i := 0; i < 5; i++ {
		d, err := svc.Route(context.Background(), "s1", "ok what next")
		require.NoError(t, err)
		require.Equal(t, first.Agent, d.Agent, "turn %d changed agent without handoff signal", i+2)
		assert.True(t, d.FastPath, "turn %d should take the fast path", i+2)
	}
	assert.Equal(t, callsAfterFirst, fake.CallCount(), "fast path must not invoke the model")
}

func TestRouteSubjectSwitch(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"agent": "math", "reason": "fractions"}`))
	s, _ := storetest.NewStore()
	svc := NewService(fake, s)

	_, err := svc.Route(context.Background(), "s1", "help with fractions")
	require.NoError(t, err)

	d, err := svc.Route(context.Background(), "s1", "actually can we do science instead?")
	require.NoError(t, err)
	assert.Equal(t, agent.Science, d.Agent, "expected science after subject switch")
	assert.False(t, d.FastPath, "subject switch must not take the fast path")
	assert.True(t, d.Handoff(), "subject switch is a handoff")
}

func TestRouteDistressGoesToMotivator(t *testing.T) {
	fake := llmtest.NewFake()
	s, _ := storetest.NewStore()
	_, err := s.UpsertRoutingState(context.Background(), &store.RoutingState{
		SessionID: "s1", ActiveAgent: "math", Reason: "fractions",
	})
	require.NoError(t, err)
	svc := NewService(fake, s)

	d, err := svc.Route(context.Background(), "s1", "I give up, this is too hard")
	require.NoError(t, err)
	assert.Equal(t, agent.Motivator, d.Agent)
	assert.Equal(t, 0, fake.CallCount(), "distress routing must not invoke the model")
}

func TestRouteNormalizesUnknownAgent(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Respond(`{"agent": "quantum_tutor", "reason": "??"}`))
	s, _ := storetest.NewStore()
	svc := NewService(fake, s)

	d, err := svc.Route(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, agent.General, d.Agent, "unknown names fall back to general")
}

func TestRouteCoordinatorFailureFallsBack(t *testing.T) {
	fake := llmtest.NewFake(llmtest.Fail(errors.New("model unreachable")))
	s, _ := storetest.NewStore()
	svc := NewService(fake, s)

	d, err := svc.Route(context.Background(), "s1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, agent.General, d.Agent, "coordinator failure falls back to general")
}

// When an utterance names two subjects, the one mentioned first wins, on
// every run.
func TestSubjectSwitchFirstMentionWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		target, ok := subjectSwitch("some algebra first, then a story", agent.General)
		require.True(t, ok)
		assert.Equal(t, agent.Math, target, "run %d", i)

		target, ok = subjectSwitch("a story first, then some algebra", agent.General)
		require.True(t, ok)
		assert.Equal(t, agent.Reading, target, "run %d", i)

		target, ok = subjectSwitch("i'm done with math, can we read a story?", agent.Math)
		require.True(t, ok)
		assert.Equal(t, agent.Reading, target, "run %d", i)
	}

	_, ok := subjectSwitch("more fractions please", agent.Math)
	assert.False(t, ok, "naming the active agent's own subject is not a switch")
}

func TestContainsWordBoundaries(t *testing.T) {
	assert.False(t, containsWord("the aftermath of it", "math"), "math must not match inside aftermath")
	assert.True(t, containsWord("i love math a lot", "math"))
	assert.True(t, containsWord("math is fun", "math"))
	assert.True(t, containsWord("i love math", "math"))
}
