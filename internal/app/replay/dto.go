package replay

import "harvesthorizon/internal/app/ports"

type Request struct {
	MapID        string
	Limit        int
	OccurredFrom int64
	OccurredTo   int64
}

type Response struct {
	Outcomes []ports.Outcome `json:"outcomes"`
	Summary  Summary         `json:"summary"`
}

type Summary struct {
	Batches      int   `json:"batches"`
	Applied      int   `json:"applied"`
	Dropped      int   `json:"dropped"`
	CoinsSpent   int64 `json:"coins_spent"`
	Inconsistent int   `json:"inconsistent"`
}
