package action

import (
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

type Request struct {
	OwnerID   string
	MapID     string
	ConnID    string
	RequestID string
	Intent    farm.Intent
}

type Response struct {
	ActionKind     farm.ActionKind      `json:"action_kind"`
	ResultCode     farm.ResultCode      `json:"result_code"`
	RequestedCount int                  `json:"requested_count"`
	EligibleCount  int                  `json:"eligible_count"`
	AppliedCount   int                  `json:"applied_count"`
	AppliedDeltas  []protocol.TileDelta `json:"applied_deltas"`
	TotalCost      int64                `json:"total_cost"`
	NewBalance     *int64               `json:"new_balance,omitempty"`
	Yield          map[string]int       `json:"yield,omitempty"`
	OutcomeID      string               `json:"outcome_id,omitempty"`
}
