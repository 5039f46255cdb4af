package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
)

// TransportError reports a dispatch that never reached the target
// instance.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dispatch to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorKind identifies this failure in activation error records.
func (e *TransportError) ErrorKind() string { return domain.ErrKindTransport }

// TimeoutError reports an execution that exceeded the dispatch
// timeout.
type TimeoutError struct {
	AgentID string
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s did not complete within %s", e.AgentID, e.Limit)
}

func (e *TimeoutError) ErrorKind() string { return domain.ErrKindTimeout }

// ExecutionError wraps a failure raised by the agent's own code.
type ExecutionError struct {
	AgentID string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.AgentID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) ErrorKind() string { return domain.ErrKindExecution }

// BindingRef identifies a resolved binding on the wire. Dispatch
// payloads carry provider identifiers only; credentials stay on the
// side that resolved them.
type BindingRef struct {
	Param        string `json:"param"`
	Service      string `json:"service"`
	Source       string `json:"source"`
	ProviderID   string `json:"providerId,omitempty"`
	ProviderName string `json:"providerName,omitempty"`
}

// DispatchRequest is the payload sent to a local or remote server.
type DispatchRequest struct {
	ActivationID string         `json:"activationId"`
	AgentID      string         `json:"agentId"`
	Version      string         `json:"version,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Input        map[string]any `json:"inputData,omitempty"`
	Bindings     []BindingRef   `json:"bindings,omitempty"`
}

// RemoteDispatcher sends an activation to a server instance and waits
// for its result. The gateway package provides the WebSocket
// implementation.
type RemoteDispatcher interface {
	Dispatch(ctx context.Context, target domain.InstanceTarget, req DispatchRequest) (any, error)
}

// bindingRefs strips handles and secrets from resolved bindings.
func bindingRefs(bindings []domain.ServiceBinding) []BindingRef {
	if len(bindings) == 0 {
		return nil
	}
	refs := make([]BindingRef, len(bindings))
	for i, b := range bindings {
		refs[i] = BindingRef{
			Param:        b.Param,
			Service:      b.Service,
			Source:       b.Source,
			ProviderID:   b.ProviderID,
			ProviderName: b.ProviderName,
		}
	}
	return refs
}

// servicesFrom builds the handle bag passed to an executing agent.
// Unbound optional dependencies are simply absent.
func servicesFrom(bindings []domain.ServiceBinding) agent.Services {
	services := make(agent.Services, len(bindings))
	for _, b := range bindings {
		if b.Bound() {
			services[b.Param] = b.Handle
		}
	}
	return services
}

// runLocal executes an artifact in-process under the given timeout.
func runLocal(ctx context.Context, art agent.Artifact, input map[string]any, services agent.Services, timeout time.Duration) (any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := execute(ctx, art, input, services)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{AgentID: art.ID(), Limit: timeout}
		}
		return nil, &ExecutionError{AgentID: art.ID(), Err: err}
	}
	return out, nil
}

func execute(ctx context.Context, art agent.Artifact, input map[string]any, services agent.Services) (any, error) {
	switch a := art.(type) {
	case *agent.ClassAgent:
		return a.Impl.Execute(ctx, input, services)
	case *agent.FunctionAgent:
		return a.Fn(ctx, input, services)
	case *agent.Pipeline:
		return a.Execute(ctx, input, services)
	default:
		return nil, fmt.Errorf("artifact %s is not directly executable", art.ID())
	}
}
