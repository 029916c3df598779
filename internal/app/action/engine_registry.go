package action

import (
	"context"
	"time"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

type ActionSpec struct {
	Kind    farm.ActionKind
	Costed  bool
	Handler ActionHandler
}

// ActionHandler supplies the per-kind pieces of the batch pipeline. StageTile
// is called once per requested tile that exists on the map and returns the
// conditional write plus its coin cost when the tile is eligible.
type ActionHandler interface {
	Precheck(ctx context.Context, uc UseCase, ac *ActionContext) error
	StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool)
	Charge(ctx context.Context, uc UseCase, ac *ActionContext) error
	Settle(ctx context.Context, uc UseCase, ac *ActionContext)
}

type BaseHandler struct{}

func (BaseHandler) Precheck(context.Context, UseCase, *ActionContext) error { return nil }
func (BaseHandler) Charge(context.Context, UseCase, *ActionContext) error { return nil }
func (BaseHandler) Settle(context.Context, UseCase, *ActionContext) {}

type StagedTile struct {
	Tile farm.Tile
	Op   farm.TileOp
	Cost int64
}

type ActionInput struct {
	Req       Request
	NowAt     time.Time
	OwnerID   string
	MapID     string
	Kind      farm.ActionKind
	Coords    []farm.Coord
	CropType  farm.CropType
	CropLevel int
}

type ActionView struct {
	Spec   ActionSpec
	Map    farm.Map
	Loaded bool
}

type ActionWritePlan struct {
	Staged    []StagedTile
	TotalCost int64
}

type ActionTmp struct {
	OutcomeID  string
	Steps      ports.OutcomeSteps
	Batch      farm.TileBatchResult
	NewBalance *int64
	Yield      map[string]int
}

type ActionContext struct {
	In   ActionInput
	View ActionView
	Plan ActionWritePlan
	Tmp  ActionTmp
}

func actionRegistry() map[farm.ActionKind]ActionSpec {
	return map[farm.ActionKind]ActionSpec{
		farm.ActionPlant:       {Kind: farm.ActionPlant, Handler: plantActionHandler{}},
		farm.ActionHarvest:     {Kind: farm.ActionHarvest, Handler: harvestActionHandler{}},
		farm.ActionClearRubble: {Kind: farm.ActionClearRubble, Handler: clearRubbleActionHandler{}},
		farm.ActionSpeedGrow:   {Kind: farm.ActionSpeedGrow, Costed: true, Handler: speedGrowActionHandler{}},
		farm.ActionLease:       {Kind: farm.ActionLease, Costed: true, Handler: leaseActionHandler{}},
		farm.ActionPayRent:     {Kind: farm.ActionPayRent, Costed: true, Handler: payRentActionHandler{}},
	}
}

func supportedActionKinds() []farm.ActionKind {
	return []farm.ActionKind{
		farm.ActionPlant,
		farm.ActionHarvest,
		farm.ActionClearRubble,
		farm.ActionSpeedGrow,
		farm.ActionLease,
		farm.ActionPayRent,
	}
}

func isSupportedActionKind(k farm.ActionKind) bool {
	for _, kind := range supportedActionKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
