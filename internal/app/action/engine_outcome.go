package action

import (
	"context"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

// JournalOutcome appends the saga record of a batch that reached the grid
// store. Journal failures are logged and never fail the batch.
func (u UseCase) JournalOutcome(ctx context.Context, ac *ActionContext, runErr error) {
	if !ac.View.Loaded || u.Outcomes == nil {
		return
	}
	out := ports.Outcome{
		ID:        ac.Tmp.OutcomeID,
		MapID:     ac.In.MapID,
		OwnerID:   ac.In.OwnerID,
		RequestID: ac.In.Req.RequestID,
		Kind:      ac.In.Kind,
		Requested: len(ac.In.Coords),
		Eligible:  len(ac.Plan.Staged),
		Applied:   ac.Tmp.Batch.AppliedCount,
		Steps:     ac.Tmp.Steps,
		At:        ac.In.NowAt,
	}
	if ac.Tmp.Steps.Grid != ports.StepSkipped && ac.Tmp.Steps.Grid != ports.StepFailed {
		out.Dropped = out.Eligible - out.Applied
	}
	if ac.Tmp.Steps.Debit == ports.StepOK {
		out.Cost = ac.Plan.TotalCost
	}
	switch {
	case runErr != nil:
		out.Result = FailureReason(runErr)
	case len(ac.Plan.Staged) == 0:
		out.Result = string(farm.ResultNoEligibleTiles)
	case out.Dropped > 0:
		out.Result = string(farm.ResultPartial)
	default:
		out.Result = string(farm.ResultOK)
	}
	if err := u.Outcomes.Append(ctx, out); err != nil {
		u.logger().Error("journal outcome", "outcome_id", out.ID, "map_id", out.MapID, "err", err)
	}
}

func (u UseCase) raise(ctx context.Context, ac *ActionContext, kind, msg string, detail map[string]any) {
	if u.Metrics != nil {
		u.Metrics.RecordInconsistency(ac.In.Kind)
	}
	alert := ports.Alert{
		Kind:       kind,
		OutcomeID:  ac.Tmp.OutcomeID,
		MapID:      ac.In.MapID,
		OwnerID:    ac.In.OwnerID,
		ActionKind: ac.In.Kind,
		Message:    msg,
		Detail:     detail,
		At:         ac.In.NowAt,
	}
	if u.Alerts == nil {
		u.logger().Error("reconciliation alert", "kind", kind, "outcome_id", alert.OutcomeID, "map_id", alert.MapID, "owner_id", alert.OwnerID)
		return
	}
	u.Alerts.Raise(ctx, alert)
}
