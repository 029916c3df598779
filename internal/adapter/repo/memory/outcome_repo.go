package memory

import (
	"context"

	"harvesthorizon/internal/app/ports"
)

type OutcomeRepo struct {
	store *Store
}

func NewOutcomeRepo(store *Store) OutcomeRepo {
	return OutcomeRepo{store: store}
}

func (r OutcomeRepo) Append(_ context.Context, outcome ports.Outcome) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.outcomes[outcome.MapID] = append(r.store.outcomes[outcome.MapID], outcome)
	return nil
}

// ListByMap returns the newest outcomes first.
func (r OutcomeRepo) ListByMap(_ context.Context, mapID string, limit int) ([]ports.Outcome, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.outcomes[mapID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]ports.Outcome, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
