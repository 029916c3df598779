package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

func c(x, y int) farm.Coord {
	return farm.Coord{X: x, Y: y}
}

func TestExecute_ClearRubblePartialBatchSkipsIneligible(t *testing.T) {
	f := newFixture(
		baseTile(0, 0, 0),
		baseTile(1, 0, farm.DefaultClearObstructionLevel),
		farm.Tile{X: 2, Y: 0, ObstructionLevel: 0, IsLeasable: true},
	)

	out, err := f.exec(farm.ActionClearRubble, c(0, 0), c(1, 0), c(2, 0), c(5, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ResultCode != farm.ResultOK || out.RequestedCount != 4 || out.EligibleCount != 1 || out.AppliedCount != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(out.AppliedDeltas) != 1 || out.AppliedDeltas[0].Coord() != c(0, 0) {
		t.Fatalf("unexpected deltas: %+v", out.AppliedDeltas)
	}
	if got := f.grid.tile("m1", 0, 0).ObstructionLevel; got != 1 {
		t.Fatalf("obstruction = %d, want 1", got)
	}
	if got := f.grid.tile("m1", 2, 0).ObstructionLevel; got != 0 {
		t.Fatalf("unleased tile mutated: %d", got)
	}
	if f.ledger.debits != 0 || len(f.broadcast.sent) != 0 {
		t.Fatalf("clear rubble must not touch the ledger")
	}
	if len(f.broadcast.published) != 1 || len(f.broadcast.published[0]) != 1 {
		t.Fatalf("expected one published batch with one delta, got %+v", f.broadcast.published)
	}
}

func TestExecute_DeltasCarryLandedTileVersion(t *testing.T) {
	f := newFixture(baseTile(0, 0, 0))

	first, err := f.exec(farm.ActionClearRubble, c(0, 0))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.exec(farm.ActionClearRubble, c(0, 0))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	v1, v2 := first.AppliedDeltas[0].Version, second.AppliedDeltas[0].Version
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = %d, %d, want 1, 2", v1, v2)
	}
	if !second.AppliedDeltas[0].Supersedes(v1) || first.AppliedDeltas[0].Supersedes(v2) {
		t.Fatalf("later write must supersede the earlier one")
	}
}

func TestExecute_ClearRubbleStepsUntilPlantable(t *testing.T) {
	f := newFixture(baseTile(0, 0, 0))
	rules := farm.DefaultRules()

	for i := 1; i <= farm.DefaultClearObstructionLevel; i++ {
		out, err := f.exec(farm.ActionClearRubble, c(0, 0))
		if err != nil {
			t.Fatalf("clear %d: %v", i, err)
		}
		if out.AppliedCount != 1 {
			t.Fatalf("clear %d applied %d", i, out.AppliedCount)
		}
		if got := f.grid.tile("m1", 0, 0).ObstructionLevel; got != i {
			t.Fatalf("after clear %d obstruction = %d", i, got)
		}
	}
	if !rules.IsPlantable(f.grid.tile("m1", 0, 0), t0) {
		t.Fatalf("expected tile to be plantable after full clear")
	}

	out, err := f.exec(farm.ActionClearRubble, c(0, 0))
	if err != nil {
		t.Fatalf("clearing a clear tile must not be an error: %v", err)
	}
	if out.ResultCode != farm.ResultNoEligibleTiles || out.AppliedCount != 0 {
		t.Fatalf("expected no-op, got %+v", out)
	}
}

func TestExecute_DuplicateCoordsCountOnce(t *testing.T) {
	f := newFixture(baseTile(0, 0, 0))

	out, err := f.exec(farm.ActionClearRubble, c(0, 0), c(0, 0), c(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RequestedCount != 1 || out.AppliedCount != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if got := f.grid.tile("m1", 0, 0).ObstructionLevel; got != 1 {
		t.Fatalf("obstruction = %d, want 1", got)
	}
}

func TestExecute_SpeedGrowInsufficientFundsLeavesStateUntouched(t *testing.T) {
	planted := t0.Add(-time.Minute)
	f := newFixture(
		cropTile(0, 0, farm.CropWheat, 5, planted),
		cropTile(1, 0, farm.CropWheat, 5, planted),
		cropTile(2, 0, farm.CropWheat, 5, planted),
	)
	f.ledger.balances["o1"] = 10

	_, err := f.exec(farm.ActionSpeedGrow, c(0, 0), c(1, 0), c(2, 0))
	var funds *InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if funds.Required != 18 || funds.Available != 10 {
		t.Fatalf("unexpected context: %+v", funds)
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected errors.Is ErrInsufficientFunds")
	}
	if f.grid.calls != 0 || f.ledger.balances["o1"] != 10 {
		t.Fatalf("expected no mutation, grid calls=%d balance=%d", f.grid.calls, f.ledger.balances["o1"])
	}
	for x := 0; x < 3; x++ {
		if !f.grid.tile("m1", x, 0).Crop.PlantedAt.Equal(planted) {
			t.Fatalf("tile %d mutated", x)
		}
	}
	if len(f.broadcast.published) != 0 || len(f.broadcast.sent) != 0 {
		t.Fatalf("rejected batch must not broadcast")
	}
	if len(f.outcomes.records) != 1 || f.outcomes.records[0].Result != protocol.ReasonInsufficientFunds {
		t.Fatalf("expected rejected outcome journaled, got %+v", f.outcomes.records)
	}
	if f.metrics.failureCalls != 1 || f.metrics.lastReason != protocol.ReasonInsufficientFunds {
		t.Fatalf("unexpected metrics: %+v", f.metrics)
	}
}

func TestExecute_SpeedGrowChargesOnlyEligibleTiles(t *testing.T) {
	planted := t0.Add(-time.Minute)
	f := newFixture(
		cropTile(0, 0, farm.CropWheat, 2, planted),
		cropTile(1, 0, farm.CropWheat, 1, t0.Add(-time.Hour)),
		baseTile(2, 0, farm.DefaultClearObstructionLevel),
	)

	out, err := f.exec(farm.ActionSpeedGrow, c(0, 0), c(1, 0), c(2, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.EligibleCount != 1 || out.AppliedCount != 1 || out.TotalCost != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.NewBalance == nil || *out.NewBalance != 998 || f.ledger.balances["o1"] != 998 {
		t.Fatalf("unexpected balance: %v / %d", out.NewBalance, f.ledger.balances["o1"])
	}
	wantPlanted := planted.Add(-farm.DefaultRules().StageDuration(farm.CropWheat, 2))
	if got := f.grid.tile("m1", 0, 0).Crop.PlantedAt; !got.Equal(wantPlanted) {
		t.Fatalf("plantedAt = %v, want %v", got, wantPlanted)
	}
	if len(f.broadcast.sent) != 1 || f.broadcast.sent[0].connID != "c1" {
		t.Fatalf("expected one unicast to c1, got %+v", f.broadcast.sent)
	}
	bd, ok := f.broadcast.sent[0].msg.(protocol.BalanceDelta)
	if !ok || bd.NewBalance != 998 || bd.OwnerID != "o1" {
		t.Fatalf("unexpected balance delta: %+v", f.broadcast.sent[0].msg)
	}
}

func TestExecute_LeaseScenario(t *testing.T) {
	f := newFixture(leasableTile(3, 3))

	out, err := f.exec(farm.ActionLease, c(3, 3))
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if out.TotalCost != farm.DefaultLeaseCost || f.ledger.balances["o1"] != 1000-farm.DefaultLeaseCost {
		t.Fatalf("unexpected cost/balance: %+v / %d", out, f.ledger.balances["o1"])
	}
	tile := f.grid.tile("m1", 3, 3)
	if tile.IsLeasable || tile.NextRentDue == nil || !tile.NextRentDue.Equal(t0.Add(farm.DefaultLeasePeriod)) {
		t.Fatalf("unexpected leased tile: %+v", tile)
	}
	if !farm.DefaultRules().IsActionAllowed(tile, t0) {
		t.Fatalf("leased tile should be actionable")
	}

	again, err := f.exec(farm.ActionLease, c(3, 3))
	if err != nil {
		t.Fatalf("re-lease must not be an error: %v", err)
	}
	if again.ResultCode != farm.ResultNoEligibleTiles || f.ledger.balances["o1"] != 1000-farm.DefaultLeaseCost {
		t.Fatalf("re-lease must not charge: %+v / %d", again, f.ledger.balances["o1"])
	}
}

func TestExecute_PayRentOnlyOnceDue(t *testing.T) {
	due := t0.Add(time.Hour)
	f := newFixture(farm.Tile{X: 1, Y: 1, ObstructionLevel: 4, NextRentDue: &due})

	out, err := f.exec(farm.ActionPayRent, c(1, 1))
	if err != nil || out.ResultCode != farm.ResultNoEligibleTiles {
		t.Fatalf("rent not yet due should be a no-op, got %+v err=%v", out, err)
	}

	f.now = t0.Add(2 * time.Hour)
	out, err = f.exec(farm.ActionPayRent, c(1, 1))
	if err != nil {
		t.Fatalf("pay rent: %v", err)
	}
	if out.TotalCost != farm.DefaultRentCost || f.ledger.balances["o1"] != 1000-farm.DefaultRentCost {
		t.Fatalf("unexpected cost/balance: %+v / %d", out, f.ledger.balances["o1"])
	}
	tile := f.grid.tile("m1", 1, 1)
	if !tile.NextRentDue.Equal(f.now.Add(farm.DefaultLeasePeriod)) {
		t.Fatalf("next rent due = %v", tile.NextRentDue)
	}
}

func TestExecute_PlantRequiresSeedsBeforeMutation(t *testing.T) {
	f := newFixture(baseTile(0, 0, 4), baseTile(1, 0, 4))
	f.inventory.items["o1"] = map[string]int{"wheat_seed": 1}

	_, err := f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1", MapID: "m1", ConnID: "c1",
		Intent: farm.Intent{Kind: farm.ActionPlant, Coords: []farm.Coord{c(0, 0), c(1, 0)}, CropType: farm.CropWheat},
	})
	var res *InsufficientResourceError
	if !errors.As(err, &res) {
		t.Fatalf("expected InsufficientResourceError, got %v", err)
	}
	if res.Resource != "wheat_seed" || res.Required != 2 || res.Available != 1 {
		t.Fatalf("unexpected context: %+v", res)
	}
	if f.grid.calls != 0 || f.inventory.items["o1"]["wheat_seed"] != 1 {
		t.Fatalf("expected no mutation")
	}
}

func TestExecute_PlantDeductsSeedsAndPlants(t *testing.T) {
	f := newFixture(baseTile(0, 0, 4), baseTile(1, 0, 4), baseTile(2, 0, 1))
	f.inventory.items["o1"] = map[string]int{"wheat_seed": 5}

	out, err := f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1", MapID: "m1", ConnID: "c1",
		Intent: farm.Intent{Kind: farm.ActionPlant, Coords: []farm.Coord{c(0, 0), c(1, 0), c(2, 0)}, CropType: " Wheat "},
	})
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	if out.AppliedCount != 2 || out.TotalCost != 0 || out.NewBalance != nil {
		t.Fatalf("unexpected response: %+v", out)
	}
	if f.inventory.items["o1"]["wheat_seed"] != 3 {
		t.Fatalf("seeds = %d, want 3", f.inventory.items["o1"]["wheat_seed"])
	}
	tile := f.grid.tile("m1", 0, 0)
	if !tile.HasCrop() || tile.Crop.Type != farm.CropWheat || tile.Crop.Level != 1 || !tile.Crop.PlantedAt.Equal(t0) {
		t.Fatalf("unexpected crop: %+v", tile.Crop)
	}
	if stage := farm.DefaultRules().StageForElapsed(tile.Crop.Type, tile.Crop.Level, 0); stage != 0 {
		t.Fatalf("fresh crop stage = %d", stage)
	}
	if len(f.broadcast.sent) != 0 {
		t.Fatalf("plant has no coin cost, no balance delta expected")
	}
}

func TestExecute_PlantRejectsUnknownCrop(t *testing.T) {
	f := newFixture(baseTile(0, 0, 4))

	_, err := f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1", MapID: "m1",
		Intent: farm.Intent{Kind: farm.ActionPlant, Coords: []farm.Coord{c(0, 0)}, CropType: "pumpkin"},
	})
	if !errors.Is(err, ErrInvalidActionParams) {
		t.Fatalf("expected ErrInvalidActionParams, got %v", err)
	}
	if f.grid.calls != 0 || len(f.outcomes.records) != 0 {
		t.Fatalf("validation failure must not touch the stores")
	}
}

func TestExecute_HarvestAggregatesYieldAndIsIdempotent(t *testing.T) {
	f := newFixture(
		cropTile(0, 0, farm.CropWheat, 1, t0.Add(-20*time.Minute)),
		cropTile(1, 0, farm.CropWheat, 2, t0.Add(-time.Hour)),
		cropTile(2, 0, farm.CropCarrot, 3, t0.Add(-time.Hour)),
		cropTile(3, 0, farm.CropWheat, 1, t0),
	)

	out, err := f.exec(farm.ActionHarvest, c(0, 0), c(1, 0), c(2, 0), c(3, 0))
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if out.AppliedCount != 3 {
		t.Fatalf("applied = %d, want 3", out.AppliedCount)
	}
	if len(f.inventory.credits) != 1 {
		t.Fatalf("expected a single aggregated credit, got %d", len(f.inventory.credits))
	}
	credit := f.inventory.credits[0]
	if credit["wheat"] != 3 || credit["carrot"] != 3 || len(credit) != 2 {
		t.Fatalf("unexpected credit: %+v", credit)
	}
	if f.grid.tile("m1", 0, 0).HasCrop() || !f.grid.tile("m1", 3, 0).HasCrop() {
		t.Fatalf("unexpected crop state after harvest")
	}
	for _, d := range out.AppliedDeltas {
		if !d.Fields.CropRemoved {
			t.Fatalf("harvest delta must clear the crop: %+v", d)
		}
	}

	again, err := f.exec(farm.ActionHarvest, c(0, 0), c(1, 0), c(2, 0))
	if err != nil {
		t.Fatalf("second harvest must not be an error: %v", err)
	}
	if again.ResultCode != farm.ResultNoEligibleTiles || len(f.inventory.credits) != 1 {
		t.Fatalf("second harvest must be a no-op: %+v", again)
	}
}

func TestExecute_HarvestCreditFailureKeepsGridWrite(t *testing.T) {
	f := newFixture(cropTile(0, 0, farm.CropWheat, 1, t0.Add(-time.Hour)))
	f.inventory.creditErr = errors.New("inventory offline")

	out, err := f.exec(farm.ActionHarvest, c(0, 0))
	if err != nil {
		t.Fatalf("credit failure must not fail the batch: %v", err)
	}
	if out.AppliedCount != 1 || f.grid.tile("m1", 0, 0).HasCrop() {
		t.Fatalf("harvest grid write must stand: %+v", out)
	}
	if len(f.alerts.alerts) != 1 || f.alerts.alerts[0].Kind != ports.AlertInventoryCreditFailed {
		t.Fatalf("expected inventory alert, got %+v", f.alerts.alerts)
	}
	rec := f.outcomes.records[0]
	if rec.Steps.Inventory != ports.StepFailed || rec.Steps.Grid != ports.StepOK || !rec.Inconsistent() {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
	if f.metrics.inconsistencyCalls != 1 {
		t.Fatalf("expected inconsistency metric")
	}
}

func TestExecute_GridWriteFailureAfterDebitRaisesAlert(t *testing.T) {
	f := newFixture(leasableTile(0, 0))
	f.grid.applyErr = errors.New("connection reset")

	_, err := f.exec(farm.ActionLease, c(0, 0))
	if !errors.Is(err, ErrGridWriteFailed) {
		t.Fatalf("expected ErrGridWriteFailed, got %v", err)
	}
	var gw *GridWriteFailedError
	if !errors.As(err, &gw) || !gw.Charged {
		t.Fatalf("expected charged grid write failure, got %v", err)
	}
	if f.ledger.balances["o1"] != 1000-farm.DefaultLeaseCost {
		t.Fatalf("debit is not compensated, balance = %d", f.ledger.balances["o1"])
	}
	if len(f.alerts.alerts) != 1 || f.alerts.alerts[0].Kind != ports.AlertGridWriteFailed {
		t.Fatalf("expected grid write alert, got %+v", f.alerts.alerts)
	}
	rec := f.outcomes.records[0]
	if rec.Steps.Debit != ports.StepOK || rec.Steps.Grid != ports.StepFailed || rec.Result != protocol.ReasonGridWriteFailed {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
	if len(f.broadcast.published) != 0 || len(f.broadcast.sent) != 0 {
		t.Fatalf("failed batch must not broadcast")
	}
}

func TestExecute_GridNotFoundAfterDebitIsGridWriteFailure(t *testing.T) {
	f := newFixture(leasableTile(0, 0))
	f.grid.applyErr = ports.ErrNotFound

	_, err := f.exec(farm.ActionLease, c(0, 0))
	if got := FailureReason(err); got != protocol.ReasonGridWriteFailed {
		t.Fatalf("reason = %q, want %q (err=%v)", got, protocol.ReasonGridWriteFailed, err)
	}
	if f.ledger.balances["o1"] != 1000-farm.DefaultLeaseCost {
		t.Fatalf("balance = %d", f.ledger.balances["o1"])
	}
	if rec := f.outcomes.records[0]; rec.Result != protocol.ReasonGridWriteFailed {
		t.Fatalf("journaled result = %q", rec.Result)
	}
}

func TestExecute_MissingLedgerIsNotMapNotFound(t *testing.T) {
	f := newFixture(leasableTile(0, 0))
	delete(f.ledger.balances, "o1")

	_, err := f.exec(farm.ActionLease, c(0, 0))
	if !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
	if got := FailureReason(err); got != protocol.ReasonLedgerNotFound {
		t.Fatalf("reason = %q", got)
	}
	if f.grid.calls != 0 {
		t.Fatalf("grid must not be written without a ledger")
	}
}

func TestExecute_DroppedSubOperationAfterDebit(t *testing.T) {
	f := newFixture(leasableTile(0, 0), leasableTile(1, 0))
	f.grid.interfere = map[farm.Coord]func(farm.Tile) farm.Tile{
		c(1, 0): func(tile farm.Tile) farm.Tile {
			tile.IsLeasable = false
			tile.NextRentDue = farm.TimePtr(t0.Add(time.Hour))
			return tile
		},
	}

	out, err := f.exec(farm.ActionLease, c(0, 0), c(1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ResultCode != farm.ResultPartial || out.EligibleCount != 2 || out.AppliedCount != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(out.AppliedDeltas) != 1 || out.AppliedDeltas[0].Coord() != c(0, 0) {
		t.Fatalf("only the landed write may be reported: %+v", out.AppliedDeltas)
	}
	if f.ledger.balances["o1"] != 1000-2*farm.DefaultLeaseCost {
		t.Fatalf("balance = %d", f.ledger.balances["o1"])
	}
	if len(f.alerts.alerts) != 1 || f.alerts.alerts[0].Kind != ports.AlertDroppedAfterCharge {
		t.Fatalf("expected dropped alert, got %+v", f.alerts.alerts)
	}
	if rec := f.outcomes.records[0]; rec.Dropped != 1 || rec.Steps.Grid != ports.StepPartial {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
}

func TestExecute_MapNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1", MapID: "missing",
		Intent: farm.Intent{Kind: farm.ActionClearRubble, Coords: []farm.Coord{c(0, 0)}},
	})
	if !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("expected ErrMapNotFound, got %v", err)
	}
	if FailureReason(err) != protocol.ReasonMapNotFound {
		t.Fatalf("unexpected reason %q", FailureReason(err))
	}
}

func TestExecute_ValidationErrors(t *testing.T) {
	f := newFixture(baseTile(0, 0, 0))
	uc := f.useCase()

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"missing owner", Request{MapID: "m1", Intent: farm.Intent{Kind: farm.ActionHarvest, Coords: []farm.Coord{c(0, 0)}}}, ErrInvalidRequest},
		{"unknown kind", Request{OwnerID: "o1", MapID: "m1", Intent: farm.Intent{Kind: "water", Coords: []farm.Coord{c(0, 0)}}}, ErrInvalidRequest},
		{"empty coords", Request{OwnerID: "o1", MapID: "m1", Intent: farm.Intent{Kind: farm.ActionHarvest}}, ErrInvalidActionParams},
	}
	for _, tc := range cases {
		if _, err := uc.Execute(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if f.grid.calls != 0 || f.metrics.failureCalls != len(cases) {
		t.Fatalf("validation must not touch stores; metrics=%+v", f.metrics)
	}
}

func TestExecute_NoBalanceDeltaWithoutConnection(t *testing.T) {
	f := newFixture(leasableTile(0, 0))

	_, err := f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1", MapID: "m1",
		Intent: farm.Intent{Kind: farm.ActionLease, Coords: []farm.Coord{c(0, 0)}},
	})
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if len(f.broadcast.published) != 1 || len(f.broadcast.sent) != 0 {
		t.Fatalf("expected room publish without unicast, got %+v", f.broadcast)
	}
}

func TestFailureContext(t *testing.T) {
	ctx := FailureContext(&InsufficientFundsError{Required: 5, Available: 2})
	if ctx["required"] != int64(5) || ctx["available"] != int64(2) {
		t.Fatalf("unexpected funds context: %+v", ctx)
	}
	ctx = FailureContext(&InsufficientResourceError{Resource: "corn_seed", Required: 3, Available: 0})
	if ctx["resource"] != "corn_seed" {
		t.Fatalf("unexpected resource context: %+v", ctx)
	}
	if FailureContext(ErrMapNotFound) != nil {
		t.Fatalf("map not found carries no context")
	}
	if FailureReason(ports.ErrForbidden) != protocol.ReasonForbidden || FailureReason(errors.New("x")) != protocol.ReasonInternal {
		t.Fatalf("unexpected reason mapping")
	}
}
