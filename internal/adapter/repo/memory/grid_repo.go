package memory

import (
	"context"
	"fmt"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

type GridRepo struct {
	store *Store
}

func NewGridRepo(store *Store) GridRepo {
	return GridRepo{store: store}
}

func (r GridRepo) GetMap(_ context.Context, mapID string) (farm.Map, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.maps[mapID]
	if !ok {
		return farm.Map{}, ports.ErrNotFound
	}
	out := rec.meta
	out.Tiles = make([]farm.Tile, 0, len(rec.order))
	for _, c := range rec.order {
		out.Tiles = append(out.Tiles, rec.tiles[c].Clone())
	}
	return out, nil
}

func (r GridRepo) CreateMap(_ context.Context, m farm.Map) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.maps[m.ID]; ok {
		return fmt.Errorf("create map %s: %w", m.ID, ports.ErrConflict)
	}
	r.store.maps[m.ID] = newMapRecord(m)
	return nil
}

func (r GridRepo) DeleteMap(_ context.Context, mapID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.maps[mapID]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.maps, mapID)
	delete(r.store.outcomes, mapID)
	return nil
}

// ApplyTileOps evaluates each op's filter against the current tile and writes
// it only when the filter still holds. Each op takes the store lock on its
// own, so concurrent batches interleave per tile.
func (r GridRepo) ApplyTileOps(_ context.Context, mapID string, ops []farm.TileOp) (farm.TileBatchResult, error) {
	res := farm.TileBatchResult{Results: make([]farm.TileOpResult, 0, len(ops))}
	for _, op := range ops {
		version, applied, err := r.applyOne(mapID, op)
		if err != nil {
			return res, err
		}
		if applied {
			res.AppliedCount++
		}
		res.Results = append(res.Results, farm.TileOpResult{Coord: op.Coord, Applied: applied, Version: version})
	}
	return res, nil
}

func (r GridRepo) applyOne(mapID string, op farm.TileOp) (int64, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.maps[mapID]
	if !ok {
		return 0, false, ports.ErrNotFound
	}
	tile, ok := rec.tiles[op.Coord]
	if !ok || !op.Expect.Matches(tile) {
		return 0, false, nil
	}
	next := op.Set.Apply(tile)
	next.Version = tile.Version + 1
	rec.tiles[op.Coord] = next
	return next.Version, true, nil
}
