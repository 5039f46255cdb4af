package activation

import (
	"context"
	"sort"
	"sync"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/store"
)

// Store persists activation records. The SQLite implementation lives
// in the store package; MemoryStore covers tests and the memory
// backend.
type Store interface {
	Create(ctx context.Context, rec domain.ActivationRecord) error
	// Update writes a record's mutable fields. Updating a record that
	// already reached a terminal status returns
	// domain.ErrActivationTerminal.
	Update(ctx context.Context, rec domain.ActivationRecord) error
	Get(ctx context.Context, id string) (domain.ActivationRecord, error)
	List(ctx context.Context, f store.ActivationFilter) ([]domain.ActivationRecord, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]domain.ActivationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]domain.ActivationRecord)}
}

func (s *MemoryStore) Create(ctx context.Context, rec domain.ActivationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, rec domain.ActivationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.recs[rec.ID]
	if !ok {
		return domain.ErrActivationNotFound
	}
	if existing.Status.Terminal() {
		return domain.ErrActivationTerminal
	}
	rec.CreatedAt = existing.CreatedAt
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.ActivationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recs[id]
	if !ok {
		return domain.ActivationRecord{}, domain.ErrActivationNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(ctx context.Context, f store.ActivationFilter) ([]domain.ActivationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []domain.ActivationRecord
	for _, rec := range s.recs {
		if f.AgentID != "" && rec.AgentID != f.AgentID {
			continue
		}
		if f.SessionID != "" && rec.SessionID != f.SessionID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if f.Limit > 0 && len(recs) > f.Limit {
		recs = recs[:f.Limit]
	}
	return recs, nil
}
