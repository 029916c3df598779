package protocol

import "harvesthorizon/internal/domain/farm"

// subscribe (client -> server)
type SubscribeMsg struct {
	Type    string `json:"type"`
	MapID   string `json:"map_id"`
	OwnerID string `json:"owner_id"`
}

// unsubscribe (client -> server)
type UnsubscribeMsg struct {
	Type  string `json:"type"`
	MapID string `json:"map_id"`
}

// intent (client -> server)
type IntentMsg struct {
	Type       string       `json:"type"`
	RequestID  string       `json:"request_id,omitempty"`
	ActionKind string       `json:"action_kind"`
	MapID      string       `json:"map_id,omitempty"`
	Coords     []farm.Coord `json:"coords"`
	CropType   string       `json:"crop_type,omitempty"`
	CropLevel  int          `json:"crop_level,omitempty"`
}

// map_sync (server -> client): full authoritative state for one map.
type MapSyncMsg struct {
	Type       string      `json:"type"`
	MapID      string      `json:"map_id"`
	Nickname   string      `json:"nickname"`
	OwnerID    string      `json:"owner_id"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Tiles      []farm.Tile `json:"tiles"`
	Balance    int64       `json:"balance"`
	ServerTime int64       `json:"server_time_ms"`
}

// tile_delta (server -> room)
type TileDelta struct {
	Type   string         `json:"type"`
	MapID  string         `json:"map_id"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Fields farm.TilePatch `json:"fields"`
	// Version is the tile version after this write. Zero means unversioned.
	Version int64 `json:"version,omitempty"`
}

func NewTileDelta(mapID string, c farm.Coord, fields farm.TilePatch) TileDelta {
	return TileDelta{Type: TypeTileDelta, MapID: mapID, X: c.X, Y: c.Y, Fields: fields}
}

func (d TileDelta) Coord() farm.Coord {
	return farm.Coord{X: d.X, Y: d.Y}
}

// Supersedes reports whether d is newer than a tile at version current.
// Unversioned deltas always apply.
func (d TileDelta) Supersedes(current int64) bool {
	return d.Version == 0 || d.Version > current
}

// balance_delta (server -> initiating connection)
type BalanceDelta struct {
	Type       string `json:"type"`
	OwnerID    string `json:"owner_id"`
	NewBalance int64  `json:"new_balance"`
}

func NewBalanceDelta(ownerID string, balance int64) BalanceDelta {
	return BalanceDelta{Type: TypeBalanceDelta, OwnerID: ownerID, NewBalance: balance}
}

// action_result (server -> initiating connection)
type ActionResultMsg struct {
	Type         string `json:"type"`
	RequestID    string `json:"request_id,omitempty"`
	ActionKind   string `json:"action_kind"`
	ResultCode   string `json:"result_code"`
	AppliedCount int    `json:"applied_count"`
	TotalCost    int64  `json:"total_cost"`
}

// action_failed (server -> initiating connection)
type ActionFailedMsg struct {
	Type       string         `json:"type"`
	RequestID  string         `json:"request_id,omitempty"`
	ActionKind string         `json:"action_kind"`
	Reason     string         `json:"reason"`
	Context    map[string]any `json:"context,omitempty"`
}

func NewActionFailed(requestID, kind, reason string, ctx map[string]any) ActionFailedMsg {
	return ActionFailedMsg{Type: TypeActionFailed, RequestID: requestID, ActionKind: kind, Reason: reason, Context: ctx}
}
