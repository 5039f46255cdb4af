package agent

import (
	"sort"
	"sync"

	"github.com/soyeahso/loom/internal/domain"
)

// Registry holds registered agent artifacts keyed by agent ID.
// Registering the same ID again replaces the previous artifact.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Artifact
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Artifact)}
}

func (r *Registry) Register(a Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID()] = a
}

// Get returns the artifact registered under id, or
// domain.ErrAgentNotFound.
func (r *Registry) Get(id string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return a, nil
}

// List returns all registered artifacts sorted by ID.
func (r *Registry) List() []Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Artifact, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
