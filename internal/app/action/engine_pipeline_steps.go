package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

const maxBatchCoords = 256

func (u UseCase) ValidateRequest(req Request) (ActionContext, error) {
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.MapID = strings.TrimSpace(req.MapID)
	req.Intent.Kind = farm.NormalizeActionKind(string(req.Intent.Kind))
	req.Intent.CropType = farm.NormalizeCropType(string(req.Intent.CropType))

	if req.OwnerID == "" || req.MapID == "" || !isSupportedActionKind(req.Intent.Kind) {
		return ActionContext{}, ErrInvalidRequest
	}
	coords := dedupeCoords(req.Intent.Coords)
	if len(coords) == 0 || len(coords) > maxBatchCoords {
		return ActionContext{}, ErrInvalidActionParams
	}

	return ActionContext{
		In: ActionInput{
			Req:       req,
			OwnerID:   req.OwnerID,
			MapID:     req.MapID,
			Kind:      req.Intent.Kind,
			Coords:    coords,
			CropType:  req.Intent.CropType,
			CropLevel: req.Intent.CropLevel,
		},
		Tmp: ActionTmp{Steps: ports.OutcomeSteps{
			Debit:     ports.StepSkipped,
			Inventory: ports.StepSkipped,
			Grid:      ports.StepSkipped,
		}},
	}, nil
}

func (u UseCase) ResolveSpec(ac *ActionContext) error {
	spec, ok := actionRegistry()[ac.In.Kind]
	if !ok {
		return ErrInvalidRequest
	}
	ac.View.Spec = spec
	return nil
}

func (u UseCase) RunPrechecks(ctx context.Context, ac *ActionContext) error {
	if ac.View.Spec.Handler != nil {
		return ac.View.Spec.Handler.Precheck(ctx, u, ac)
	}
	return nil
}

func (u UseCase) LoadMap(ctx context.Context, ac *ActionContext) error {
	m, err := u.Grid.GetMap(ctx, ac.In.MapID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ErrMapNotFound
		}
		return fmt.Errorf("load map: %w", err)
	}
	ac.View.Map = m
	ac.View.Loaded = true
	return nil
}

// StageEligible evaluates the rule predicate for every requested coordinate.
// Absent and ineligible tiles are skipped silently.
func (u UseCase) StageEligible(ac *ActionContext) {
	index := ac.View.Map.TileIndex()
	for _, c := range ac.In.Coords {
		tile, ok := index[c]
		if !ok {
			continue
		}
		staged, ok := ac.View.Spec.Handler.StageTile(u, ac, tile)
		if !ok {
			continue
		}
		staged.Tile = tile
		staged.Op.Coord = c
		ac.Plan.Staged = append(ac.Plan.Staged, staged)
		ac.Plan.TotalCost += staged.Cost
	}
}

func (u UseCase) ChargeLedger(ctx context.Context, ac *ActionContext) error {
	if !ac.View.Spec.Costed || ac.Plan.TotalCost <= 0 {
		return nil
	}
	balance, err := u.Ledger.GetBalance(ctx, ac.In.OwnerID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ErrLedgerNotFound
		}
		return fmt.Errorf("read balance: %w", err)
	}
	if ac.Plan.TotalCost > balance {
		return &InsufficientFundsError{Required: ac.Plan.TotalCost, Available: balance}
	}
	newBalance, err := u.Ledger.Debit(ctx, ac.In.OwnerID, ac.Plan.TotalCost)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientFunds) {
			// Another batch for the same owner debited between read and debit.
			current, readErr := u.Ledger.GetBalance(ctx, ac.In.OwnerID)
			if readErr != nil {
				current = balance
			}
			return &InsufficientFundsError{Required: ac.Plan.TotalCost, Available: current}
		}
		ac.Tmp.Steps.Debit = ports.StepFailed
		return fmt.Errorf("debit: %w", err)
	}
	ac.Tmp.Steps.Debit = ports.StepOK
	ac.Tmp.NewBalance = &newBalance
	return nil
}

func (u UseCase) ChargeResources(ctx context.Context, ac *ActionContext) error {
	return ac.View.Spec.Handler.Charge(ctx, u, ac)
}

func (u UseCase) ApplyGrid(ctx context.Context, ac *ActionContext) error {
	ops := make([]farm.TileOp, 0, len(ac.Plan.Staged))
	for _, staged := range ac.Plan.Staged {
		ops = append(ops, staged.Op)
	}
	res, err := u.Grid.ApplyTileOps(ctx, ac.In.MapID, ops)
	if err != nil {
		ac.Tmp.Steps.Grid = ports.StepFailed
		charged := ac.charged()
		if charged {
			u.raise(ctx, ac, ports.AlertGridWriteFailed, "grid write failed after charge", map[string]any{
				"cost":   ac.Plan.TotalCost,
				"staged": len(ops),
				"error":  err.Error(),
			})
		}
		return &GridWriteFailedError{Charged: charged, Err: err}
	}
	ac.Tmp.Batch = res
	if res.AppliedCount < len(ops) {
		ac.Tmp.Steps.Grid = ports.StepPartial
		if ac.charged() {
			u.raise(ctx, ac, ports.AlertDroppedAfterCharge, "tile writes dropped after charge", map[string]any{
				"cost":    ac.Plan.TotalCost,
				"staged":  len(ops),
				"applied": res.AppliedCount,
			})
		}
		return nil
	}
	ac.Tmp.Steps.Grid = ports.StepOK
	return nil
}

func (u UseCase) SettleAfterApply(ctx context.Context, ac *ActionContext) {
	ac.View.Spec.Handler.Settle(ctx, u, ac)
}

// PublishDeltas fans the applied tile deltas out to the map room and sends the
// new balance to the initiating connection only.
func (u UseCase) PublishDeltas(ctx context.Context, ac *ActionContext) {
	if u.Broadcast == nil {
		return
	}
	deltas := ac.appliedDeltas()
	if len(deltas) > 0 {
		if err := u.Broadcast.Publish(ctx, ac.In.MapID, deltas); err != nil {
			u.logger().Warn("publish tile deltas", "map_id", ac.In.MapID, "err", err)
		}
	}
	if ac.Tmp.NewBalance != nil && ac.In.Req.ConnID != "" {
		msg := protocol.NewBalanceDelta(ac.In.OwnerID, *ac.Tmp.NewBalance)
		if err := u.Broadcast.SendTo(ctx, ac.In.Req.ConnID, msg); err != nil {
			u.logger().Warn("send balance delta", "conn_id", ac.In.Req.ConnID, "err", err)
		}
	}
}

func (u UseCase) BuildNoopResponse(ac *ActionContext) Response {
	return Response{
		ActionKind:     ac.In.Kind,
		ResultCode:     farm.ResultNoEligibleTiles,
		RequestedCount: len(ac.In.Coords),
		AppliedDeltas:  []protocol.TileDelta{},
		OutcomeID:      ac.Tmp.OutcomeID,
	}
}

func (u UseCase) BuildResponse(ac *ActionContext) Response {
	code := farm.ResultOK
	if ac.Tmp.Batch.AppliedCount < len(ac.Plan.Staged) {
		code = farm.ResultPartial
	}
	return Response{
		ActionKind:     ac.In.Kind,
		ResultCode:     code,
		RequestedCount: len(ac.In.Coords),
		EligibleCount:  len(ac.Plan.Staged),
		AppliedCount:   ac.Tmp.Batch.AppliedCount,
		AppliedDeltas:  ac.appliedDeltas(),
		TotalCost:      ac.Plan.TotalCost,
		NewBalance:     ac.Tmp.NewBalance,
		Yield:          ac.Tmp.Yield,
		OutcomeID:      ac.Tmp.OutcomeID,
	}
}

func (ac *ActionContext) appliedDeltas() []protocol.TileDelta {
	out := make([]protocol.TileDelta, 0, ac.Tmp.Batch.AppliedCount)
	for _, staged := range ac.Plan.Staged {
		if !ac.Tmp.Batch.Applied(staged.Op.Coord) {
			continue
		}
		d := protocol.NewTileDelta(ac.In.MapID, staged.Op.Coord, staged.Op.Set)
		d.Version = ac.Tmp.Batch.VersionOf(staged.Op.Coord)
		out = append(out, d)
	}
	return out
}

// appliedTiles returns the pre-write view of every tile whose write landed.
func (ac *ActionContext) appliedTiles() []farm.Tile {
	out := make([]farm.Tile, 0, ac.Tmp.Batch.AppliedCount)
	for _, staged := range ac.Plan.Staged {
		if ac.Tmp.Batch.Applied(staged.Op.Coord) {
			out = append(out, staged.Tile)
		}
	}
	return out
}

func (ac *ActionContext) charged() bool {
	return ac.Tmp.Steps.Debit == ports.StepOK ||
		(ac.In.Kind == farm.ActionPlant && ac.Tmp.Steps.Inventory == ports.StepOK)
}

func dedupeCoords(in []farm.Coord) []farm.Coord {
	seen := make(map[farm.Coord]struct{}, len(in))
	out := make([]farm.Coord, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
