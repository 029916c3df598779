package memory

import (
	"sync"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

type mapRecord struct {
	meta  farm.Map
	order []farm.Coord
	tiles map[farm.Coord]farm.Tile
}

// Store backs every in-memory repository. mu guards single operations;
// txMu serializes TxManager units so a unit can still call the repos.
type Store struct {
	txMu      sync.Mutex
	mu        sync.RWMutex
	maps      map[string]*mapRecord
	ledgers   map[string]int64
	inventory map[string]map[string]int
	outcomes  map[string][]ports.Outcome
}

func NewStore() *Store {
	return &Store{
		maps:      make(map[string]*mapRecord),
		ledgers:   make(map[string]int64),
		inventory: make(map[string]map[string]int),
		outcomes:  make(map[string][]ports.Outcome),
	}
}

func (s *Store) SeedMap(m farm.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[m.ID] = newMapRecord(m)
}

func (s *Store) SeedBalance(ownerID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[ownerID] = balance
}

func newMapRecord(m farm.Map) *mapRecord {
	rec := &mapRecord{
		meta:  m,
		order: make([]farm.Coord, 0, len(m.Tiles)),
		tiles: make(map[farm.Coord]farm.Tile, len(m.Tiles)),
	}
	rec.meta.Tiles = nil
	for _, t := range m.Tiles {
		c := t.Coord()
		if _, dup := rec.tiles[c]; !dup {
			rec.order = append(rec.order, c)
		}
		rec.tiles[c] = t.Clone()
	}
	return rec
}
