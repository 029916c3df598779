// Package gate decides which owners may act on which maps.
package gate

import (
	"context"
	"strings"

	"harvesthorizon/internal/app/ports"
)

// MapOwner authorizes an owner only on the maps it created.
type MapOwner struct {
	Grid ports.GridStore
}

func (g MapOwner) Authorize(ctx context.Context, ownerID, mapID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ports.ErrForbidden
	}
	m, err := g.Grid.GetMap(ctx, strings.TrimSpace(mapID))
	if err != nil {
		return err
	}
	if m.OwnerID != ownerID {
		return ports.ErrForbidden
	}
	return nil
}
