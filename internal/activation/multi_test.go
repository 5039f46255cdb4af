package activation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
)

func TestActivateMany_Sequential_SharedSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("a"))
	f.agents.Register(echoAgent("b"))

	recs, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"a", "b"},
		Mode:   ModeSequential,
		Input:  map[string]any{"text": "hi"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "a", recs[0].AgentID)
	assert.Equal(t, "b", recs[1].AgentID)
	assert.NotEmpty(t, recs[0].SessionID)
	assert.Equal(t, recs[0].SessionID, recs[1].SessionID)
	for _, rec := range recs {
		assert.Equal(t, domain.StatusSucceeded, rec.Status)
	}
}

func TestActivateMany_Parallel_BoundedByMaxParallel(t *testing.T) {
	f := newFixture(t, Options{MaxParallel: 2})

	var mu sync.Mutex
	running, peak := 0, 0
	slow := func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return "ok", nil
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		f.agents.Register(&agent.FunctionAgent{AgentID: id, Fn: slow})
	}

	recs, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"a", "b", "c", "d"},
		Mode:   ModeParallel,
	})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for i, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, id, recs[i].AgentID)
		assert.Equal(t, domain.StatusSucceeded, recs[i].Status)
	}
	assert.LessOrEqual(t, peak, 2)
}

func TestActivateMany_Chain_FeedsOutputForward(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "upper",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return map[string]any{"text": input["text"].(string) + "!"}, nil
		},
	})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "count",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return len(input["text"].(string)), nil
		},
	})

	recs, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"upper", "count"},
		Mode:   ModeChain,
		Input:  map[string]any{"text": "hey"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 4, recs[1].Output)
}

func TestActivateMany_Chain_StopsOnFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "broken",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, errors.New("boom")
		},
	})
	f.agents.Register(echoAgent("never"))

	recs, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"broken", "never"},
		Mode:   ModeChain,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.StatusFailed, recs[0].Status)
}

func TestActivateMany_Conversation_AccumulatesHistory(t *testing.T) {
	f := newFixture(t, Options{})
	var secondSawHistory []map[string]any
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "first",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			assert.NotContains(t, input, "history")
			return "opening line", nil
		},
	})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "second",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			secondSawHistory = input["history"].([]map[string]any)
			return "reply", nil
		},
	})

	recs, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"first", "second"},
		Mode:   ModeConversation,
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Len(t, secondSawHistory, 1)
	assert.Equal(t, "first", secondSawHistory[0]["agent_id"])
	assert.Equal(t, "opening line", secondSawHistory[0]["output"])
}

func TestActivateMany_UnknownMode(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("a"))

	_, err := f.svc.ActivateMany(context.Background(), MultiRequest{
		Agents: Agents{"a"},
		Mode:   "ring",
	})
	assert.Error(t, err)
}

func TestActivateMany_NoAgents(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.ActivateMany(context.Background(), MultiRequest{})
	assert.Error(t, err)
}

func TestActivate_Workflow(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("step-1"))
	f.agents.Register(echoAgent("step-2"))
	f.agents.Register(&agent.WorkflowRef{
		AgentID: "daily-report",
		Agents:  []string{"step-1", "step-2"},
		Mode:    ModeSequential,
	})

	rec, err := f.svc.Activate(context.Background(), Request{
		AgentID: "daily-report",
		Input:   map[string]any{"text": "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, rec.Status)

	summary := rec.Output.([]map[string]any)
	require.Len(t, summary, 2)
	assert.Equal(t, "step-1", summary[0]["agent_id"])
	assert.Equal(t, "succeeded", summary[0]["status"])
}

func TestActivate_Workflow_MemberFailureFailsWorkflow(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("ok"))
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "broken",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, errors.New("boom")
		},
	})
	f.agents.Register(&agent.WorkflowRef{
		AgentID: "mixed",
		Agents:  []string{"ok", "broken"},
		Mode:    ModeSequential,
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "mixed"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindExecution, rec.Error.Kind)
	assert.Contains(t, rec.Error.Message, "broken")
}
