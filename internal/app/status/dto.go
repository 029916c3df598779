package status

type Request struct {
	OwnerID string
}

type Response struct {
	OwnerID   string         `json:"owner_id"`
	Balance   int64          `json:"balance"`
	Inventory map[string]int `json:"inventory"`
}
