package dedup

import (
	"context"
	"fmt"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// store is the consumer interface for the processed-deal set (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
}

// Registry records which deal ids have already been processed.
// The set grows without bound; deal ids are small and the volume is a
// handful per day, so no expiry is applied.
type Registry struct {
	store store
	key   string
}

// New creates a dedup registry keyed under keyPrefix.
func New(s store, keyPrefix string) *Registry {
	return &Registry{store: s, key: keyPrefix + "processed_deals"}
}

// Seen reports whether dealID was already processed.
func (r *Registry) Seen(ctx context.Context, dealID string) (bool, error) {
	ok, err := r.store.SIsMember(ctx, r.key, dealID)
	if err != nil {
		return false, fmt.Errorf("check processed deal %s: %w: %w", dealID, domain.ErrStore, err)
	}
	return ok, nil
}

// Record marks dealID as processed. SADD is atomic, so concurrent callers
// racing on the same id see exactly one of them return ErrAlreadyProcessed.
func (r *Registry) Record(ctx context.Context, dealID string) error {
	added, err := r.store.SAdd(ctx, r.key, dealID)
	if err != nil {
		return fmt.Errorf("record processed deal %s: %w: %w", dealID, domain.ErrStore, err)
	}
	if added == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}
