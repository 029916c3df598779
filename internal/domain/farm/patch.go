package farm

import "time"

type CropMatch struct {
	Type      CropType
	PlantedAt time.Time
}

// TileExpect is the optimistic-concurrency filter of one tile write. Every
// set field must still hold at write time or the write is dropped.
type TileExpect struct {
	ObstructionLevel *int
	CropAbsent       bool
	Crop             *CropMatch
	IsBaseTile       *bool
	IsLeasable       *bool
	RentDueAbsent    bool
	RentDue          *time.Time
}

func (e TileExpect) Matches(t Tile) bool {
	if e.ObstructionLevel != nil && t.ObstructionLevel != *e.ObstructionLevel {
		return false
	}
	if e.CropAbsent && t.HasCrop() {
		return false
	}
	if e.Crop != nil {
		if !t.HasCrop() || t.Crop.Type != e.Crop.Type || !t.Crop.PlantedAt.Equal(e.Crop.PlantedAt) {
			return false
		}
	}
	if e.IsBaseTile != nil && t.IsBaseTile != *e.IsBaseTile {
		return false
	}
	if e.IsLeasable != nil && t.IsLeasable != *e.IsLeasable {
		return false
	}
	if e.RentDueAbsent && t.NextRentDue != nil {
		return false
	}
	if e.RentDue != nil && (t.NextRentDue == nil || !t.NextRentDue.Equal(*e.RentDue)) {
		return false
	}
	return true
}

// TilePatch is the field-level mutation of one tile. It is also the payload
// of a tile delta, so unset fields are omitted on the wire.
type TilePatch struct {
	ObstructionLevel *int       `json:"obstruction_level,omitempty"`
	Crop             *Crop      `json:"crop,omitempty"`
	CropRemoved      bool       `json:"crop_removed,omitempty"`
	IsLeasable       *bool      `json:"is_leasable,omitempty"`
	NextRentDue      *time.Time `json:"next_rent_due,omitempty"`
}

func (p TilePatch) IsEmpty() bool {
	return p.ObstructionLevel == nil && p.Crop == nil && !p.CropRemoved && p.IsLeasable == nil && p.NextRentDue == nil
}

func (p TilePatch) TouchesCrop() bool {
	return p.Crop != nil || p.CropRemoved
}

func (p TilePatch) Apply(t Tile) Tile {
	out := t.Clone()
	if p.ObstructionLevel != nil {
		out.ObstructionLevel = *p.ObstructionLevel
	}
	if p.CropRemoved {
		out.Crop = nil
	}
	if p.Crop != nil {
		c := *p.Crop
		out.Crop = &c
	}
	if p.IsLeasable != nil {
		out.IsLeasable = *p.IsLeasable
	}
	if p.NextRentDue != nil {
		due := *p.NextRentDue
		out.NextRentDue = &due
	}
	return out
}

type TileOp struct {
	Coord  Coord
	Expect TileExpect
	Set    TilePatch
}

type TileOpResult struct {
	Coord   Coord `json:"coord"`
	Applied bool  `json:"applied"`
	// Version is the tile version the write produced; zero when not applied.
	Version int64 `json:"version,omitempty"`
}

type TileBatchResult struct {
	AppliedCount int            `json:"applied_count"`
	Results      []TileOpResult `json:"results"`
}

func (r TileBatchResult) Applied(c Coord) bool {
	for _, res := range r.Results {
		if res.Coord == c {
			return res.Applied
		}
	}
	return false
}

func (r TileBatchResult) VersionOf(c Coord) int64 {
	for _, res := range r.Results {
		if res.Coord == c {
			return res.Version
		}
	}
	return 0
}

func IntPtr(v int) *int {
	return &v
}

func BoolPtr(v bool) *bool {
	return &v
}

func TimePtr(v time.Time) *time.Time {
	return &v
}
