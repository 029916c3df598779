package memory

import (
	"context"

	"harvesthorizon/internal/app/ports"
)

type LedgerRepo struct {
	store *Store
}

func NewLedgerRepo(store *Store) LedgerRepo {
	return LedgerRepo{store: store}
}

func (r LedgerRepo) Open(_ context.Context, ownerID string, initial int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.ledgers[ownerID]; !ok {
		r.store.ledgers[ownerID] = initial
	}
	return nil
}

func (r LedgerRepo) GetBalance(_ context.Context, ownerID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.ledgers[ownerID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return b, nil
}

func (r LedgerRepo) Debit(_ context.Context, ownerID string, amount int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.ledgers[ownerID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	if amount > b {
		return b, ports.ErrInsufficientFunds
	}
	r.store.ledgers[ownerID] = b - amount
	return b - amount, nil
}

func (r LedgerRepo) Credit(_ context.Context, ownerID string, amount int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.ledgers[ownerID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	r.store.ledgers[ownerID] = b + amount
	return b + amount, nil
}
