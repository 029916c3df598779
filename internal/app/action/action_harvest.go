package action

import (
	"context"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

type harvestActionHandler struct{ BaseHandler }

func (h harvestActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.CanHarvest(tile, ac.In.NowAt) {
		return StagedTile{}, false
	}
	return StagedTile{Op: farm.TileOp{
		Expect: farm.TileExpect{Crop: &farm.CropMatch{Type: tile.Crop.Type, PlantedAt: tile.Crop.PlantedAt}},
		Set:    farm.TilePatch{CropRemoved: true},
	}}, true
}

// Settle credits the yield of every harvested tile, aggregated by crop type.
// A failed credit leaves the grid write in place and raises an alert.
func (h harvestActionHandler) Settle(ctx context.Context, uc UseCase, ac *ActionContext) {
	yield := map[string]int{}
	for _, tile := range ac.appliedTiles() {
		yield[string(tile.Crop.Type)] += uc.Rules.HarvestYield(*tile.Crop)
	}
	if len(yield) == 0 {
		return
	}
	if uc.Inventory == nil {
		ac.Tmp.Steps.Inventory = ports.StepFailed
		uc.raise(ctx, ac, ports.AlertInventoryCreditFailed, "harvest yield not credited", map[string]any{"yield": yield, "error": errInventoryUnavailable.Error()})
		return
	}
	if err := uc.Inventory.Credit(ctx, ac.In.OwnerID, yield); err != nil {
		ac.Tmp.Steps.Inventory = ports.StepFailed
		uc.raise(ctx, ac, ports.AlertInventoryCreditFailed, "harvest yield not credited", map[string]any{"yield": yield, "error": err.Error()})
		return
	}
	ac.Tmp.Steps.Inventory = ports.StepOK
	ac.Tmp.Yield = yield
}
