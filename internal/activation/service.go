// Package activation runs agents: it creates the activation record,
// resolves dependencies, routes to an execution target, dispatches,
// and records the terminal outcome.
package activation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/hooks"
	"github.com/soyeahso/loom/internal/logging"
	"github.com/soyeahso/loom/internal/resolve"
	"github.com/soyeahso/loom/internal/routing"
	"github.com/soyeahso/loom/internal/store"
)

// AccountSource loads the saved instance accounts at routing time, so
// instance edits take effect without restarting.
type AccountSource func() (map[string]domain.InstanceAccount, error)

// Options configures the activation service.
type Options struct {
	Store    Store
	Agents   *agent.Registry
	Resolver *resolve.Resolver
	Hooks    *hooks.Manager
	Remote   RemoteDispatcher
	Accounts AccountSource

	// LocalEndpoint is where the "default" instance selector routes.
	LocalEndpoint string
	// DispatchTimeout bounds a single dispatch. Zero means no limit.
	DispatchTimeout time.Duration
	// WatchInterval is the polling period for Watch.
	WatchInterval time.Duration
	// MaxParallel caps concurrent activations in parallel multi-agent
	// runs. Zero means unbounded.
	MaxParallel int

	Log *logging.Logger
}

// Service coordinates the activation lifecycle. Records move
// pending -> running -> succeeded|failed; terminal records never
// change, a retry mints a new record instead.
type Service struct {
	store    Store
	agents   *agent.Registry
	resolver *resolve.Resolver
	hooks    *hooks.Manager
	remote   RemoteDispatcher
	accounts AccountSource

	localEndpoint string
	timeout       time.Duration
	watchInterval time.Duration
	maxParallel   int

	log *logging.Logger
}

func New(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	watchInterval := opts.WatchInterval
	if watchInterval <= 0 {
		watchInterval = 500 * time.Millisecond
	}
	return &Service{
		store:         opts.Store,
		agents:        opts.Agents,
		resolver:      opts.Resolver,
		hooks:         opts.Hooks,
		remote:        opts.Remote,
		accounts:      opts.Accounts,
		localEndpoint: opts.LocalEndpoint,
		timeout:       opts.DispatchTimeout,
		watchInterval: watchInterval,
		maxParallel:   opts.MaxParallel,
		log:           log.Sub("activation"),
	}
}

// Request describes one activation.
type Request struct {
	AgentID   string
	Input     map[string]any
	Instance  string
	SessionID string
	// Overrides map a dependency parameter to an explicit provider
	// name, winning over registry defaults.
	Overrides map[string]string
}

// Activate runs an agent once. Failures of the agent or its plumbing
// land on the returned record as a terminal failed status with an
// ErrorInfo; the returned error is reserved for store failures.
func (s *Service) Activate(ctx context.Context, req Request) (domain.ActivationRecord, error) {
	now := time.Now()
	rec := domain.ActivationRecord{
		ID:        uuid.New().String(),
		AgentID:   req.AgentID,
		SessionID: req.SessionID,
		Status:    domain.StatusPending,
		Input:     req.Input,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return rec, err
	}
	s.emit(ctx, hooks.EventActivationQueued, rec)

	art, err := s.agents.Get(req.AgentID)
	if err != nil {
		return s.fail(ctx, rec, err)
	}
	rec.AgentVersion = art.Version()

	desc, err := agent.Describe(art)
	if err != nil {
		return s.fail(ctx, rec, err)
	}

	bindings, err := s.resolver.Resolve(ctx, desc, req.Overrides)
	if err != nil {
		return s.fail(ctx, rec, err)
	}

	target, err := s.route(req.Instance)
	if err != nil {
		return s.fail(ctx, rec, err)
	}
	rec.InstanceMode = target.Mode
	rec.InstanceAlias = target.Alias

	rec.Status = domain.StatusRunning
	rec.StartedAt = time.Now()
	if err := s.store.Update(ctx, rec); err != nil {
		return rec, err
	}

	out, err := s.dispatch(ctx, rec, art, desc, bindings, target, req)
	rec.Output = out
	if err != nil {
		return s.fail(ctx, rec, err)
	}

	rec.Status = domain.StatusSucceeded
	rec.CompletedAt = time.Now()
	if err := s.store.Update(ctx, rec); err != nil {
		return rec, err
	}
	s.emit(ctx, hooks.EventActivationCompleted, rec)
	s.log.Info().Str("activation", rec.ID).Str("agent", rec.AgentID).Dur("duration", rec.Duration()).Msg("activation succeeded")
	return rec, nil
}

func (s *Service) dispatch(ctx context.Context, rec domain.ActivationRecord, art agent.Artifact, desc domain.AgentDescriptor, bindings []domain.ServiceBinding, target domain.InstanceTarget, req Request) (any, error) {
	if wf, ok := art.(*agent.WorkflowRef); ok {
		return s.runWorkflow(ctx, wf, rec, req)
	}

	switch target.Mode {
	case domain.ModeLocalDirect:
		return runLocal(ctx, art, req.Input, servicesFrom(bindings), s.timeout)

	case domain.ModeLocalServer, domain.ModeRemoteServer:
		if s.remote == nil {
			return nil, &TransportError{Endpoint: target.Endpoint, Err: errors.New("no dispatcher configured")}
		}
		dctx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		out, err := s.remote.Dispatch(dctx, target, DispatchRequest{
			ActivationID: rec.ID,
			AgentID:      desc.AgentID,
			Version:      desc.Version,
			SessionID:    rec.SessionID,
			Input:        req.Input,
			Bindings:     bindingRefs(bindings),
		})
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{AgentID: desc.AgentID, Limit: s.timeout}
		}
		return out, err

	default:
		return nil, &routing.RoutingError{Requested: string(target.Mode)}
	}
}

func (s *Service) route(requested string) (domain.InstanceTarget, error) {
	var accounts map[string]domain.InstanceAccount
	if s.accounts != nil {
		var err error
		accounts, err = s.accounts()
		if err != nil {
			return domain.InstanceTarget{}, err
		}
	}
	return routing.Route(requested, accounts, s.localEndpoint)
}

// fail marks the record terminally failed, mapping the error to its
// recorded kind. The error itself does not propagate.
func (s *Service) fail(ctx context.Context, rec domain.ActivationRecord, cause error) (domain.ActivationRecord, error) {
	rec.Status = domain.StatusFailed
	rec.Error = errorInfoFor(cause)
	rec.CompletedAt = time.Now()
	if err := s.store.Update(ctx, rec); err != nil {
		return rec, err
	}
	s.emit(ctx, hooks.EventActivationCompleted, rec)
	s.log.Warn().Str("activation", rec.ID).Str("agent", rec.AgentID).Str("kind", rec.Error.Kind).Str("error", rec.Error.Message).Msg("activation failed")
	return rec, nil
}

func (s *Service) emit(ctx context.Context, event string, rec domain.ActivationRecord) {
	if s.hooks == nil {
		return
	}
	data := map[string]any{
		"activation_id": rec.ID,
		"agent_id":      rec.AgentID,
		"status":        string(rec.Status),
	}
	if rec.SessionID != "" {
		data["session_id"] = rec.SessionID
	}
	if rec.Error != nil {
		data["error_kind"] = rec.Error.Kind
	}
	s.hooks.EmitAsync(ctx, event, data)
}

// errorInfoFor maps a failure to its recorded kind. Typed errors carry
// their own kind; anything unclassified records as internal.
func errorInfoFor(err error) *domain.ErrorInfo {
	var kinder interface{ ErrorKind() string }
	switch {
	case errors.As(err, &kinder):
		return &domain.ErrorInfo{Kind: kinder.ErrorKind(), Message: err.Error()}
	case errors.Is(err, domain.ErrAgentNotFound):
		return &domain.ErrorInfo{Kind: domain.ErrKindDescriptor, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrorInfo{Kind: domain.ErrKindTimeout, Message: err.Error()}
	default:
		return &domain.ErrorInfo{Kind: domain.ErrKindInternal, Message: err.Error()}
	}
}

// Retry reruns a terminal activation as a fresh record with a new ID.
func (s *Service) Retry(ctx context.Context, activationID string) (domain.ActivationRecord, error) {
	prev, err := s.store.Get(ctx, activationID)
	if err != nil {
		return domain.ActivationRecord{}, err
	}
	instance := ""
	if prev.InstanceMode != domain.ModeLocalDirect {
		instance = prev.InstanceAlias
	}
	return s.Activate(ctx, Request{
		AgentID:   prev.AgentID,
		Input:     prev.Input,
		Instance:  instance,
		SessionID: prev.SessionID,
	})
}

// Get returns one activation record.
func (s *Service) Get(ctx context.Context, id string) (domain.ActivationRecord, error) {
	return s.store.Get(ctx, id)
}

// List returns activation records matching the filter, newest first.
func (s *Service) List(ctx context.Context, f store.ActivationFilter) ([]domain.ActivationRecord, error) {
	return s.store.List(ctx, f)
}
