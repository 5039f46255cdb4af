// Package resolve binds an agent's declared dependencies to configured
// providers before the agent runs.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
	"github.com/soyeahso/loom/internal/provider"
	"github.com/soyeahso/loom/internal/service"
)

// UnresolvedDependencyError reports required dependencies that could
// not be bound. Resolution fails as a whole; the agent never starts.
type UnresolvedDependencyError struct {
	AgentID string
	Params  []string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("agent %s: unresolved required dependencies: %s",
		e.AgentID, strings.Join(e.Params, ", "))
}

// ErrorKind identifies this failure in activation error records.
func (e *UnresolvedDependencyError) ErrorKind() string { return domain.ErrKindUnresolvedDependency }

// Resolver binds dependencies against the provider registry and builds
// live handles through the service factory.
type Resolver struct {
	registry provider.Registry
	factory  *service.Factory
	log      *logging.Logger
}

func New(registry provider.Registry, factory *service.Factory, log *logging.Logger) *Resolver {
	return &Resolver{registry: registry, factory: factory, log: log.Sub("resolve")}
}

// Resolve binds every dependency of the descriptor, in declaration
// order. Overrides map a parameter name to a provider name; an
// override is looked up by (service type, name) and wins over the
// registry default. A dependency with no matching provider binds as
// unavailable: fine when optional, fatal when required.
func (r *Resolver) Resolve(ctx context.Context, desc domain.AgentDescriptor, overrides map[string]string) ([]domain.ServiceBinding, error) {
	bindings := make([]domain.ServiceBinding, 0, len(desc.Dependencies))
	var missing []string

	for _, dep := range desc.Dependencies {
		binding, err := r.resolveOne(ctx, desc.AgentID, dep, overrides[dep.Param])
		if err != nil {
			return nil, err
		}
		if !binding.Bound() && !dep.Optional {
			missing = append(missing, dep.Param)
		}
		bindings = append(bindings, binding)
	}

	if len(missing) > 0 {
		return nil, &UnresolvedDependencyError{AgentID: desc.AgentID, Params: missing}
	}
	return bindings, nil
}

func (r *Resolver) resolveOne(ctx context.Context, agentID string, dep domain.Dependency, override string) (domain.ServiceBinding, error) {
	binding := domain.ServiceBinding{
		Param:   dep.Param,
		Service: dep.Service,
		Source:  domain.SourceUnavailable,
	}

	cfg, source, err := r.pickProvider(ctx, dep.Service, override)
	if err != nil {
		if errors.Is(err, domain.ErrProviderNotFound) {
			r.log.Debug().Str("agent", agentID).Str("param", dep.Param).Str("service", dep.Service).Msg("no provider for dependency")
			return binding, nil
		}
		return binding, err
	}

	handle, err := r.factory.HandleFor(ctx, cfg, agentID)
	if err != nil {
		var unavail *service.UnavailableError
		if errors.As(err, &unavail) {
			r.log.Warn().Str("agent", agentID).Str("param", dep.Param).Str("provider", cfg.Name).Str("reason", unavail.Reason).Msg("provider unavailable")
			return binding, nil
		}
		return binding, err
	}

	binding.Source = source
	binding.ProviderID = cfg.ID
	binding.ProviderName = cfg.Name
	binding.Handle = handle
	return binding, nil
}

// pickProvider resolves an override by name first, then falls back to
// the registered default for the service type.
func (r *Resolver) pickProvider(ctx context.Context, serviceType, override string) (domain.ProviderConfig, string, error) {
	if override != "" {
		cfg, err := r.registry.Lookup(ctx, serviceType, override)
		if err != nil {
			return domain.ProviderConfig{}, "", err
		}
		return cfg, domain.SourceExplicitConfig, nil
	}

	cfg, err := r.registry.DefaultFor(ctx, serviceType)
	if err != nil {
		return domain.ProviderConfig{}, "", err
	}
	return cfg, domain.SourceDefaultProvider, nil
}
