package action

import "harvesthorizon/internal/domain/farm"

type speedGrowActionHandler struct{ BaseHandler }

func (h speedGrowActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.CanSpeedGrow(tile, ac.In.NowAt) {
		return StagedTile{}, false
	}
	crop := *tile.Crop
	crop.PlantedAt = uc.Rules.SpeedGrowPlantedAt(crop)
	return StagedTile{
		Op: farm.TileOp{
			Expect: farm.TileExpect{Crop: &farm.CropMatch{Type: tile.Crop.Type, PlantedAt: tile.Crop.PlantedAt}},
			Set:    farm.TilePatch{Crop: &crop},
		},
		Cost: uc.Rules.SpeedGrowCost(crop.Level),
	}, true
}
