package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
)

// Registry is the provider lookup surface used by the dependency
// resolver and the CLI. The SQLite-backed implementation lives in the
// store package; MemoryRegistry covers tests and the memory backend.
type Registry interface {
	// Lookup returns the provider with the given type and name, or
	// domain.ErrProviderNotFound.
	Lookup(ctx context.Context, providerType, name string) (domain.ProviderConfig, error)
	// DefaultFor returns the default provider for a service type, or
	// domain.ErrProviderNotFound when none is marked default.
	DefaultFor(ctx context.Context, providerType string) (domain.ProviderConfig, error)
	// Upsert inserts or updates a provider keyed by (type, name). When
	// cfg.Default is set, any previous default of the same type is
	// cleared atomically with the write.
	Upsert(ctx context.Context, cfg domain.ProviderConfig) (domain.ProviderConfig, error)
	// List returns all providers of a type, or all providers when
	// providerType is empty.
	List(ctx context.Context, providerType string) ([]domain.ProviderConfig, error)
}

// MemoryRegistry is an in-memory Registry. The default swap is
// serialized by the write lock, so concurrent upserts always converge
// to a single default per type.
type MemoryRegistry struct {
	mu        sync.RWMutex
	providers map[string]map[string]domain.ProviderConfig // type → name → config
	log       *logging.Logger
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry(log *logging.Logger) *MemoryRegistry {
	return &MemoryRegistry{
		providers: make(map[string]map[string]domain.ProviderConfig),
		log:       log.Sub("provider.registry"),
	}
}

// Lookup returns the provider with the given type and name.
func (r *MemoryRegistry) Lookup(ctx context.Context, providerType, name string) (domain.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.providers[providerType][name]
	if !ok {
		return domain.ProviderConfig{}, domain.ErrProviderNotFound
	}
	return cfg, nil
}

// DefaultFor returns the default provider for a service type.
func (r *MemoryRegistry) DefaultFor(ctx context.Context, providerType string) (domain.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cfg := range r.providers[providerType] {
		if cfg.Default {
			return cfg, nil
		}
	}
	return domain.ProviderConfig{}, domain.ErrProviderNotFound
}

// Upsert inserts or updates a provider. Setting Default clears the
// previous default for the same type under the same lock.
func (r *MemoryRegistry) Upsert(ctx context.Context, cfg domain.ProviderConfig) (domain.ProviderConfig, error) {
	if cfg.Type == "" || cfg.Name == "" {
		return domain.ProviderConfig{}, &ValidationError{Message: "provider type and name are required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.providers[cfg.Type]
	if byName == nil {
		byName = make(map[string]domain.ProviderConfig)
		r.providers[cfg.Type] = byName
	}

	now := time.Now()
	if existing, ok := byName[cfg.Name]; ok {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	} else {
		if cfg.ID == "" {
			cfg.ID = uuid.New().String()
		}
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	if cfg.Default {
		for name, other := range byName {
			if other.Default && name != cfg.Name {
				other.Default = false
				other.UpdatedAt = now
				byName[name] = other
			}
		}
	}

	byName[cfg.Name] = cfg
	r.log.Debug().Str("type", cfg.Type).Str("name", cfg.Name).Bool("default", cfg.Default).Msg("provider upserted")
	return cfg, nil
}

// List returns all providers of a type, or every provider when
// providerType is empty.
func (r *MemoryRegistry) List(ctx context.Context, providerType string) ([]domain.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var configs []domain.ProviderConfig
	if providerType != "" {
		for _, cfg := range r.providers[providerType] {
			configs = append(configs, cfg)
		}
		return configs, nil
	}
	for _, byName := range r.providers {
		for _, cfg := range byName {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

// ValidationError reports an invalid provider configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "provider: " + e.Message
}
