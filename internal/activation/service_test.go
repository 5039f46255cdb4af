package activation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/hooks"
	"github.com/soyeahso/loom/internal/logging"
	"github.com/soyeahso/loom/internal/provider"
	"github.com/soyeahso/loom/internal/resolve"
	"github.com/soyeahso/loom/internal/service"
	"github.com/soyeahso/loom/internal/store"
)

type fixture struct {
	svc      *Service
	agents   *agent.Registry
	registry *provider.MemoryRegistry
	hooks    *hooks.Manager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		agents:   agent.NewRegistry(),
		registry: provider.NewMemoryRegistry(logging.Nop()),
		hooks:    hooks.NewManager(logging.Nop()),
	}
	opts.Store = NewMemoryStore()
	opts.Agents = f.agents
	opts.Resolver = resolve.New(f.registry, service.NewFactory(nil, logging.Nop()), logging.Nop())
	opts.Hooks = f.hooks
	opts.Log = logging.Nop()
	if opts.WatchInterval == 0 {
		opts.WatchInterval = 5 * time.Millisecond
	}
	f.svc = New(opts)
	return f
}

func (f *fixture) seedMockLLM(t *testing.T) {
	t.Helper()
	_, err := f.registry.Upsert(context.Background(), domain.ProviderConfig{
		Type:    domain.ServiceLLM,
		Name:    "mock",
		Default: true,
	})
	require.NoError(t, err)
}

func echoAgent(id string) *agent.FunctionAgent {
	return &agent.FunctionAgent{
		AgentID:      id,
		AgentVersion: "1.0.0",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return map[string]any{"echo": input["text"]}, nil
		},
	}
}

func TestActivate_Success(t *testing.T) {
	f := newFixture(t, Options{})
	f.seedMockLLM(t)
	f.agents.Register(&agent.FunctionAgent{
		AgentID:      "summarizer",
		AgentVersion: "2.1.0",
		Params:       []agent.ParamSpec{{Name: "llm_service"}},
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			require.True(t, services.Has("llm_service"))
			llm := services["llm_service"].(service.LLM)
			resp, err := llm.Complete(ctx, service.CompletionRequest{
				Messages: []service.Message{{Role: "user", Content: input["text"].(string)}},
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"summary": resp.Content}, nil
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{
		AgentID: "summarizer",
		Input:   map[string]any{"text": "long text"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSucceeded, rec.Status)
	assert.Equal(t, "2.1.0", rec.AgentVersion)
	assert.Equal(t, domain.ModeLocalDirect, rec.InstanceMode)
	assert.Nil(t, rec.Error)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CompletedAt.IsZero())
	out := rec.Output.(map[string]any)
	assert.Equal(t, "mock response", out["summary"])

	// The stored record matches the returned one.
	stored, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, stored.Status)
}

func TestActivate_UnknownAgent(t *testing.T) {
	f := newFixture(t, Options{})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindDescriptor, rec.Error.Kind)
}

func TestActivate_RequiredDependencyMissing(t *testing.T) {
	f := newFixture(t, Options{})
	var ran bool
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "needy",
		Params:  []agent.ParamSpec{{Name: "llm_service"}},
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			ran = true
			return nil, nil
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "needy"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindUnresolvedDependency, rec.Error.Kind)
	// The agent never starts when a required dependency is unbound.
	assert.False(t, ran)
	assert.True(t, rec.StartedAt.IsZero())
}

func TestActivate_OptionalDependencyMissing(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "flexible",
		Params:  []agent.ParamSpec{{Name: "llm_service", Optional: true}},
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return map[string]any{"had_llm": services.Has("llm_service")}, nil
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "flexible"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, rec.Status)
	out := rec.Output.(map[string]any)
	assert.Equal(t, false, out["had_llm"])
}

func TestActivate_UnknownInstance(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("echo"))

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "echo", Instance: "nowhere"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindRouting, rec.Error.Kind)
}

func TestActivate_ExecutionError(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "crasher",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, errors.New("boom")
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "crasher"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindExecution, rec.Error.Kind)
	assert.Contains(t, rec.Error.Message, "boom")
}

func TestActivate_Timeout(t *testing.T) {
	f := newFixture(t, Options{DispatchTimeout: 20 * time.Millisecond})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "slow",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "slow"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindTimeout, rec.Error.Kind)
}

func TestActivate_TerminalRecordImmutable(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("echo"))

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "echo"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSucceeded, rec.Status)

	rec.Status = domain.StatusRunning
	err = f.svc.store.Update(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrActivationTerminal)
}

func TestRetry_MintsNewRecord(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "flaky",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, errors.New("transient")
		},
	})

	first, err := f.svc.Activate(context.Background(), Request{
		AgentID: "flaky",
		Input:   map[string]any{"n": "1"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, first.Status)

	second, err := f.svc.Retry(context.Background(), first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.AgentID, second.AgentID)
	assert.Equal(t, first.Input, second.Input)

	// The original record is untouched.
	orig, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, orig.Status)
}

func TestActivate_EmitsHooks(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("echo"))

	queued := make(chan hooks.Payload, 1)
	completed := make(chan hooks.Payload, 1)
	f.hooks.On(hooks.EventActivationQueued, "t", func(_ context.Context, p hooks.Payload) error {
		queued <- p
		return nil
	})
	f.hooks.On(hooks.EventActivationCompleted, "t", func(_ context.Context, p hooks.Payload) error {
		completed <- p
		return nil
	})

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "echo"})
	require.NoError(t, err)

	select {
	case p := <-queued:
		assert.Equal(t, rec.ID, p.Data["activation_id"])
		assert.Equal(t, "pending", p.Data["status"])
	case <-time.After(2 * time.Second):
		t.Fatal("queued hook not emitted")
	}
	select {
	case p := <-completed:
		assert.Equal(t, "succeeded", p.Data["status"])
	case <-time.After(2 * time.Second):
		t.Fatal("completed hook not emitted")
	}
}

type fakeDispatcher struct {
	gotTarget domain.InstanceTarget
	gotReq    DispatchRequest
	out       any
	err       error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, target domain.InstanceTarget, req DispatchRequest) (any, error) {
	d.gotTarget = target
	d.gotReq = req
	return d.out, d.err
}

func TestActivate_RemoteDispatch(t *testing.T) {
	remote := &fakeDispatcher{out: map[string]any{"from": "remote"}}
	f := newFixture(t, Options{
		Remote: remote,
		Accounts: func() (map[string]domain.InstanceAccount, error) {
			return map[string]domain.InstanceAccount{
				"prod": {Name: "prod", BaseURL: "https://loom.example.com", APIKey: "secret-key"},
			}, nil
		},
	})
	f.seedMockLLM(t)
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "summarizer",
		Params:  []agent.ParamSpec{{Name: "llm_service"}},
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, nil
		},
	})

	rec, err := f.svc.Activate(context.Background(), Request{
		AgentID:  "summarizer",
		Instance: "prod",
		Input:    map[string]any{"text": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, rec.Status)
	assert.Equal(t, domain.ModeRemoteServer, rec.InstanceMode)
	assert.Equal(t, "prod", rec.InstanceAlias)
	assert.Equal(t, map[string]any{"from": "remote"}, rec.Output)

	// Dispatch payloads carry binding identifiers, not handles or keys.
	require.Len(t, remote.gotReq.Bindings, 1)
	assert.Equal(t, "llm_service", remote.gotReq.Bindings[0].Param)
	assert.Equal(t, "mock", remote.gotReq.Bindings[0].ProviderName)
	assert.Equal(t, rec.ID, remote.gotReq.ActivationID)
}

func TestActivate_RemoteDispatch_TransportError(t *testing.T) {
	remote := &fakeDispatcher{err: &TransportError{Endpoint: "https://x", Err: errors.New("connection refused")}}
	f := newFixture(t, Options{
		Remote:        remote,
		LocalEndpoint: "http://127.0.0.1:17817",
	})
	f.agents.Register(echoAgent("echo"))

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "echo", Instance: "default"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, domain.ErrKindTransport, rec.Error.Kind)
	assert.Equal(t, domain.ModeLocalServer, remote.gotTarget.Mode)
}

func TestWatch_ReturnsTerminal(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("echo"))

	rec, err := f.svc.Activate(context.Background(), Request{AgentID: "echo"})
	require.NoError(t, err)

	got, err := f.svc.Watch(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
}

func TestWatch_PollsUntilTerminal(t *testing.T) {
	f := newFixture(t, Options{WatchInterval: time.Millisecond})
	ms := f.svc.store.(*MemoryStore)
	ctx := context.Background()

	rec := domain.ActivationRecord{ID: "act-1", AgentID: "a", Status: domain.StatusRunning, CreatedAt: time.Now()}
	require.NoError(t, ms.Create(ctx, rec))

	go func() {
		time.Sleep(20 * time.Millisecond)
		rec.Status = domain.StatusSucceeded
		_ = ms.Update(ctx, rec)
	}()

	got, err := f.svc.Watch(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
}

func TestWatch_ContextCancelled(t *testing.T) {
	f := newFixture(t, Options{WatchInterval: time.Millisecond})
	ms := f.svc.store.(*MemoryStore)
	require.NoError(t, ms.Create(context.Background(), domain.ActivationRecord{
		ID: "act-1", AgentID: "a", Status: domain.StatusRunning, CreatedAt: time.Now(),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	_, err := f.svc.Watch(ctx, "act-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestList_FilterByStatus(t *testing.T) {
	f := newFixture(t, Options{})
	f.agents.Register(echoAgent("echo"))
	f.agents.Register(&agent.FunctionAgent{
		AgentID: "crasher",
		Fn: func(ctx context.Context, input map[string]any, services agent.Services) (any, error) {
			return nil, errors.New("boom")
		},
	})

	_, err := f.svc.Activate(context.Background(), Request{AgentID: "echo"})
	require.NoError(t, err)
	_, err = f.svc.Activate(context.Background(), Request{AgentID: "crasher"})
	require.NoError(t, err)

	failed, err := f.svc.List(context.Background(), store.ActivationFilter{Status: domain.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "crasher", failed[0].AgentID)
}
