package farm

import (
	"strings"
	"time"
)

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type CropType string

const (
	CropWheat  CropType = "wheat"
	CropCorn   CropType = "corn"
	CropCarrot CropType = "carrot"
)

func NormalizeCropType(in string) CropType {
	return CropType(strings.ToLower(strings.TrimSpace(in)))
}

type Crop struct {
	Type      CropType  `json:"type"`
	Level     int       `json:"level"`
	PlantedAt time.Time `json:"planted_at"`
}

// Tile is one cell of a map grid. Crop and NextRentDue are optional; a nil
// value means absent.
type Tile struct {
	X                int        `json:"x"`
	Y                int        `json:"y"`
	ObstructionLevel int        `json:"obstruction_level"`
	Crop             *Crop      `json:"crop,omitempty"`
	IsBaseTile       bool       `json:"is_base_tile"`
	IsLeasable       bool       `json:"is_leasable"`
	NextRentDue      *time.Time `json:"next_rent_due,omitempty"`
	// Version counts landed writes. The store owns it; patches never set it.
	Version int64 `json:"version"`
}

func (t Tile) Coord() Coord {
	return Coord{X: t.X, Y: t.Y}
}

func (t Tile) HasCrop() bool {
	return t.Crop != nil && t.Crop.Type != ""
}

// Clone returns a deep copy so callers can mutate optional fields freely.
func (t Tile) Clone() Tile {
	out := t
	if t.Crop != nil {
		c := *t.Crop
		out.Crop = &c
	}
	if t.NextRentDue != nil {
		due := *t.NextRentDue
		out.NextRentDue = &due
	}
	return out
}

type Map struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Nickname  string    `json:"nickname"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Tiles     []Tile    `json:"tiles"`
	CreatedAt time.Time `json:"created_at"`
}

func (m Map) TileIndex() map[Coord]Tile {
	out := make(map[Coord]Tile, len(m.Tiles))
	for _, t := range m.Tiles {
		out[t.Coord()] = t
	}
	return out
}

type ActionKind string

const (
	ActionPlant       ActionKind = "plant"
	ActionHarvest     ActionKind = "harvest"
	ActionClearRubble ActionKind = "clear_rubble"
	ActionSpeedGrow   ActionKind = "speed_grow"
	ActionLease       ActionKind = "lease"
	ActionPayRent     ActionKind = "pay_rent"
)

func NormalizeActionKind(in string) ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(in)))
}

type Intent struct {
	Kind      ActionKind `json:"action_kind"`
	Coords    []Coord    `json:"coords"`
	CropType  CropType   `json:"crop_type,omitempty"`
	CropLevel int        `json:"crop_level,omitempty"`
}

type ResultCode string

const (
	ResultOK              ResultCode = "OK"
	ResultNoEligibleTiles ResultCode = "NO_ELIGIBLE_TILES"
	// ResultPartial means some staged tile writes were dropped by their
	// concurrency filter.
	ResultPartial ResultCode = "PARTIAL"
)
