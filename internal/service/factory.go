package service

import (
	"context"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
	"github.com/soyeahso/loom/internal/store"
)

// Factory builds service handles from provider configurations. The
// dependency resolver calls HandleFor once per bound dependency.
type Factory struct {
	data *store.DataStore
	log  *logging.Logger
}

// NewFactory creates a factory. The data store may be nil, in which
// case data providers are unavailable.
func NewFactory(data *store.DataStore, log *logging.Logger) *Factory {
	return &Factory{data: data, log: log.Sub("service")}
}

// HandleFor returns a live service handle for the provider, scoped to
// the activating agent where the service type requires it.
func (f *Factory) HandleFor(ctx context.Context, cfg domain.ProviderConfig, agentID string) (any, error) {
	switch cfg.Type {
	case domain.ServiceLLM:
		if cfg.Name == "mock" {
			return &MockLLM{ProviderName: cfg.Name}, nil
		}
		if cfg.Endpoint == "" {
			return nil, &UnavailableError{Provider: cfg.Name, Reason: "llm provider has no endpoint"}
		}
		return NewHTTPLLM(cfg), nil

	case domain.ServiceOAuth:
		return NewOAuth(cfg)

	case domain.ServiceStorage:
		if cfg.Name == "gdrive" {
			return NewDriveStorage(ctx, cfg)
		}
		return NewLocalStorage(cfg)

	case domain.ServiceData:
		if f.data == nil {
			return nil, &UnavailableError{Provider: cfg.Name, Reason: "no data store configured"}
		}
		return NewData(cfg.Name, agentID, f.data), nil

	default:
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "unknown service type " + cfg.Type}
	}
}
