package action

import "harvesthorizon/internal/domain/farm"

type clearRubbleActionHandler struct{ BaseHandler }

// StageTile raises the obstruction level by exactly one step.
func (h clearRubbleActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.CanClearRubble(tile, ac.In.NowAt) {
		return StagedTile{}, false
	}
	return StagedTile{Op: farm.TileOp{
		Expect: farm.TileExpect{ObstructionLevel: farm.IntPtr(tile.ObstructionLevel)},
		Set:    farm.TilePatch{ObstructionLevel: farm.IntPtr(tile.ObstructionLevel + 1)},
	}}, true
}
