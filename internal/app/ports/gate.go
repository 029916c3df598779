package ports

import "context"

// OwnershipGate decides whether an owner may act on a map. It returns
// ErrForbidden when not, ErrNotFound when the map does not exist.
type OwnershipGate interface {
	Authorize(ctx context.Context, ownerID, mapID string) error
}
