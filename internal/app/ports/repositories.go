package ports

import (
	"context"
	"time"

	"harvesthorizon/internal/domain/farm"
)

// GridStore owns map tiles. ApplyTileOps runs every op as an independent
// single-tile conditional write; there is no cross-tile atomicity.
type GridStore interface {
	GetMap(ctx context.Context, mapID string) (farm.Map, error)
	CreateMap(ctx context.Context, m farm.Map) error
	DeleteMap(ctx context.Context, mapID string) error
	ApplyTileOps(ctx context.Context, mapID string, ops []farm.TileOp) (farm.TileBatchResult, error)
}

// LedgerStore owns one coin balance per owner. Debit is check-then-apply
// atomic per owner and fails with ErrInsufficientFunds or ErrNotFound.
type LedgerStore interface {
	Open(ctx context.Context, ownerID string, initial int64) error
	GetBalance(ctx context.Context, ownerID string) (int64, error)
	Debit(ctx context.Context, ownerID string, amount int64) (int64, error)
	Credit(ctx context.Context, ownerID string, amount int64) (int64, error)
}

type Inventory interface {
	HasEnough(ctx context.Context, ownerID, resource string, count int) (bool, error)
	Deduct(ctx context.Context, ownerID, resource string, count int) error
	Credit(ctx context.Context, ownerID string, items map[string]int) error
	List(ctx context.Context, ownerID string) (map[string]int, error)
}

type StepStatus string

const (
	StepSkipped StepStatus = "skipped"
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepPartial StepStatus = "partial"
)

// OutcomeSteps reports which of the non-transactional stores a batch touched.
type OutcomeSteps struct {
	Debit     StepStatus `json:"debit"`
	Inventory StepStatus `json:"inventory"`
	Grid      StepStatus `json:"grid"`
}

// Outcome is the journal record of one processed batch.
type Outcome struct {
	ID        string          `json:"id"`
	MapID     string          `json:"map_id"`
	OwnerID   string          `json:"owner_id"`
	RequestID string          `json:"request_id,omitempty"`
	Kind      farm.ActionKind `json:"action_kind"`
	Requested int             `json:"requested"`
	Eligible  int             `json:"eligible"`
	Applied   int             `json:"applied"`
	Dropped   int             `json:"dropped"`
	Cost      int64           `json:"cost"`
	Steps     OutcomeSteps    `json:"steps"`
	Result    string          `json:"result"`
	At        time.Time       `json:"at"`
}

// Inconsistent reports whether a charge landed without its matching grid write.
func (o Outcome) Inconsistent() bool {
	charged := o.Steps.Debit == StepOK || (o.Kind == farm.ActionPlant && o.Steps.Inventory == StepOK)
	if charged && (o.Steps.Grid == StepFailed || o.Steps.Grid == StepPartial) {
		return true
	}
	return o.Kind == farm.ActionHarvest && o.Steps.Grid != StepSkipped && o.Steps.Inventory == StepFailed
}

type OutcomeRepository interface {
	Append(ctx context.Context, outcome Outcome) error
	ListByMap(ctx context.Context, mapID string, limit int) ([]Outcome, error)
}

// OutcomePurger drops the journal of a deleted map from a store that does not
// share the grid's lifecycle.
type OutcomePurger interface {
	PurgeMap(ctx context.Context, mapID string) (int64, error)
}
