package action

import "harvesthorizon/internal/domain/farm"

type leaseActionHandler struct{ BaseHandler }

// StageTile requires the tile to still be leasable and non-base at write time
// so two racing leases cannot both land.
func (h leaseActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.CanLease(tile) {
		return StagedTile{}, false
	}
	return StagedTile{
		Op: farm.TileOp{
			Expect: farm.TileExpect{
				IsLeasable:    farm.BoolPtr(true),
				IsBaseTile:    farm.BoolPtr(false),
				RentDueAbsent: true,
			},
			Set: farm.TilePatch{
				IsLeasable:  farm.BoolPtr(false),
				NextRentDue: farm.TimePtr(uc.Rules.NextRentDue(ac.In.NowAt)),
			},
		},
		Cost: uc.Rules.LeaseCost(),
	}, true
}

type payRentActionHandler struct{ BaseHandler }

func (h payRentActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.CanPayRent(tile, ac.In.NowAt) {
		return StagedTile{}, false
	}
	return StagedTile{
		Op: farm.TileOp{
			Expect: farm.TileExpect{
				IsLeasable: farm.BoolPtr(false),
				RentDue:    farm.TimePtr(*tile.NextRentDue),
			},
			Set: farm.TilePatch{NextRentDue: farm.TimePtr(uc.Rules.NextRentDue(ac.In.NowAt))},
		},
		Cost: uc.Rules.RentCost(),
	}, true
}
