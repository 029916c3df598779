package mapview

import (
	"time"

	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

type Request struct {
	MapID   string
	OwnerID string
}

type Response struct {
	Map        farm.Map  `json:"map"`
	Balance    int64     `json:"balance"`
	ServerTime time.Time `json:"server_time"`
}

// Sync renders the response as the full-state message sent on subscribe.
func (r Response) Sync() protocol.MapSyncMsg {
	return protocol.MapSyncMsg{
		Type:       protocol.TypeMapSync,
		MapID:      r.Map.ID,
		Nickname:   r.Map.Nickname,
		OwnerID:    r.Map.OwnerID,
		Width:      r.Map.Width,
		Height:     r.Map.Height,
		Tiles:      r.Map.Tiles,
		Balance:    r.Balance,
		ServerTime: r.ServerTime.UnixMilli(),
	}
}
