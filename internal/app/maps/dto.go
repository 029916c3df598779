package maps

type CreateRequest struct {
	OwnerID  string
	Nickname string
	Width    int
	Height   int
	Seed     int64
}

type CreateResponse struct {
	MapID     string `json:"map_id"`
	TileCount int    `json:"tile_count"`
	Balance   int64  `json:"balance"`
}

type DeleteRequest struct {
	MapID string
}
