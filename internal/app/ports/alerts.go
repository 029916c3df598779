package ports

import (
	"context"
	"time"

	"harvesthorizon/internal/domain/farm"
)

const (
	AlertGridWriteFailed       = "grid_write_failed"
	AlertDroppedAfterCharge    = "dropped_after_charge"
	AlertInventoryCreditFailed = "inventory_credit_failed"
)

// Alert records a partial multi-store mutation that needs reconciliation.
type Alert struct {
	Kind       string          `json:"kind"`
	OutcomeID  string          `json:"outcome_id"`
	MapID      string          `json:"map_id"`
	OwnerID    string          `json:"owner_id"`
	ActionKind farm.ActionKind `json:"action_kind"`
	Message    string          `json:"message"`
	Detail     map[string]any  `json:"detail,omitempty"`
	At         time.Time       `json:"at"`
}

type AlertSink interface {
	Raise(ctx context.Context, alert Alert)
}
