package action

import (
	"context"
	"errors"
	"fmt"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

var errInventoryUnavailable = errors.New("inventory not configured")

type plantActionHandler struct{ BaseHandler }

func (h plantActionHandler) Precheck(_ context.Context, uc UseCase, ac *ActionContext) error {
	if ac.In.CropLevel == 0 {
		ac.In.CropLevel = farm.DefaultCropLevel
	}
	if !uc.Rules.IsKnownCrop(ac.In.CropType) || !uc.Rules.ValidCropLevel(ac.In.CropType, ac.In.CropLevel) {
		return ErrInvalidActionParams
	}
	return nil
}

func (h plantActionHandler) StageTile(uc UseCase, ac *ActionContext, tile farm.Tile) (StagedTile, bool) {
	if !uc.Rules.IsPlantable(tile, ac.In.NowAt) {
		return StagedTile{}, false
	}
	return StagedTile{Op: farm.TileOp{
		Expect: farm.TileExpect{
			CropAbsent:       true,
			ObstructionLevel: farm.IntPtr(tile.ObstructionLevel),
		},
		Set: farm.TilePatch{Crop: &farm.Crop{
			Type:      ac.In.CropType,
			Level:     ac.In.CropLevel,
			PlantedAt: ac.In.NowAt,
		}},
	}}, true
}

// Charge deducts one seed per eligible tile. The deduction is not undone if
// the grid write later fails.
func (h plantActionHandler) Charge(ctx context.Context, uc UseCase, ac *ActionContext) error {
	if uc.Inventory == nil {
		return errInventoryUnavailable
	}
	resource := uc.Rules.SeedResource(ac.In.CropType)
	need := len(ac.Plan.Staged)
	ok, err := uc.Inventory.HasEnough(ctx, ac.In.OwnerID, resource, need)
	if err != nil {
		return fmt.Errorf("check seeds: %w", err)
	}
	if !ok {
		return &InsufficientResourceError{Resource: resource, Required: need, Available: availableQuantity(ctx, uc.Inventory, ac.In.OwnerID, resource)}
	}
	if err := uc.Inventory.Deduct(ctx, ac.In.OwnerID, resource, need); err != nil {
		if errors.Is(err, ports.ErrInsufficientQuantity) {
			return &InsufficientResourceError{Resource: resource, Required: need, Available: availableQuantity(ctx, uc.Inventory, ac.In.OwnerID, resource)}
		}
		ac.Tmp.Steps.Inventory = ports.StepFailed
		return fmt.Errorf("deduct seeds: %w", err)
	}
	ac.Tmp.Steps.Inventory = ports.StepOK
	return nil
}

func availableQuantity(ctx context.Context, inv ports.Inventory, ownerID, resource string) int {
	items, err := inv.List(ctx, ownerID)
	if err != nil {
		return 0
	}
	return items[resource]
}
