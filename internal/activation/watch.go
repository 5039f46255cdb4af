package activation

import (
	"context"
	"time"

	"github.com/soyeahso/loom/internal/domain"
)

// Watch polls an activation until it reaches a terminal status and
// returns the final record. The poll period comes from the service's
// watch interval.
func (s *Service) Watch(ctx context.Context, id string) (domain.ActivationRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.ActivationRecord{}, err
	}
	if rec.Status.Terminal() {
		return rec, nil
	}

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
			rec, err = s.store.Get(ctx, id)
			if err != nil {
				return domain.ActivationRecord{}, err
			}
			if rec.Status.Terminal() {
				return rec, nil
			}
		}
	}
}
