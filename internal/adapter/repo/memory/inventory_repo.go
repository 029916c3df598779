package memory

import (
	"context"

	"harvesthorizon/internal/app/ports"
)

type InventoryRepo struct {
	store *Store
}

func NewInventoryRepo(store *Store) InventoryRepo {
	return InventoryRepo{store: store}
}

func (r InventoryRepo) HasEnough(_ context.Context, ownerID, resource string, count int) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.inventory[ownerID][resource] >= count, nil
}

func (r InventoryRepo) Deduct(_ context.Context, ownerID, resource string, count int) error {
	if count <= 0 {
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	items := r.store.inventory[ownerID]
	if items[resource] < count {
		return ports.ErrInsufficientQuantity
	}
	items[resource] -= count
	return nil
}

func (r InventoryRepo) Credit(_ context.Context, ownerID string, items map[string]int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inv := r.store.inventory[ownerID]
	if inv == nil {
		inv = map[string]int{}
		r.store.inventory[ownerID] = inv
	}
	for k, v := range items {
		inv[k] += v
	}
	return nil
}

func (r InventoryRepo) List(_ context.Context, ownerID string) (map[string]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make(map[string]int, len(r.store.inventory[ownerID]))
	for k, v := range r.store.inventory[ownerID] {
		out[k] = v
	}
	return out, nil
}
