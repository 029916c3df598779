package farm

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func leasedTile(due time.Time) Tile {
	return Tile{X: 3, Y: 4, ObstructionLevel: DefaultClearObstructionLevel, IsLeasable: false, NextRentDue: TimePtr(due)}
}

func TestRules_BaseTileAlwaysActionable(t *testing.T) {
	r := DefaultRules()
	cases := []Tile{
		{IsBaseTile: true},
		{IsBaseTile: true, IsLeasable: true},
		{IsBaseTile: true, NextRentDue: TimePtr(t0.Add(-time.Hour))},
		{IsBaseTile: true, IsLeasable: true, NextRentDue: TimePtr(t0.Add(-48 * time.Hour))},
	}
	for i, tile := range cases {
		if !r.IsActionAllowed(tile, t0) {
			t.Fatalf("case %d: expected base tile to be actionable: %+v", i, tile)
		}
	}
}

func TestRules_PayRentAndActionableAreExclusive(t *testing.T) {
	r := DefaultRules()
	due := t0.Add(time.Hour)
	tile := leasedTile(due)

	for _, now := range []time.Time{t0, due.Add(-time.Nanosecond), due, due.Add(time.Minute), due.Add(30 * 24 * time.Hour)} {
		allowed := r.IsActionAllowed(tile, now)
		payable := r.CanPayRent(tile, now)
		if allowed == payable {
			t.Fatalf("at %s: allowed=%v payable=%v, want exactly one", now.Sub(t0), allowed, payable)
		}
	}
	if !r.IsActionAllowed(tile, t0) || r.CanPayRent(tile, t0) {
		t.Fatalf("before due date tile should be actionable and not payable")
	}
	if r.IsActionAllowed(tile, due.Add(time.Second)) || !r.CanPayRent(tile, due.Add(time.Second)) {
		t.Fatalf("after due date tile should be payable and not actionable")
	}
}

func TestRules_UnleasedTileIsNotActionable(t *testing.T) {
	r := DefaultRules()
	tile := Tile{IsLeasable: true, ObstructionLevel: DefaultClearObstructionLevel}
	if r.IsActionAllowed(tile, t0) {
		t.Fatalf("unleased tile must not be actionable")
	}
	if r.IsPlantable(tile, t0) {
		t.Fatalf("unleased tile must not be plantable")
	}
	if !r.CanLease(tile) {
		t.Fatalf("unleased tile should be leasable")
	}
	if r.CanPayRent(tile, t0) {
		t.Fatalf("unleased tile has no rent to pay")
	}
}

func TestRules_CanLeaseRejectsBaseAndLeased(t *testing.T) {
	r := DefaultRules()
	if r.CanLease(Tile{IsBaseTile: true, IsLeasable: true}) {
		t.Fatalf("base tile must never be leasable")
	}
	if r.CanLease(leasedTile(t0.Add(time.Hour))) {
		t.Fatalf("leased tile must not be leased again")
	}
	if r.CanLease(Tile{IsLeasable: true, NextRentDue: TimePtr(t0)}) {
		t.Fatalf("tile with rent due must not be leasable")
	}
}

func TestRules_ClearRubbleReachesPlantable(t *testing.T) {
	r := DefaultRules()
	tile := Tile{X: 0, Y: 0, ObstructionLevel: 0, IsBaseTile: true}
	steps := 0
	for r.CanClearRubble(tile, t0) {
		if r.IsPlantable(tile, t0) {
			t.Fatalf("tile plantable before clear at level %d", tile.ObstructionLevel)
		}
		tile.ObstructionLevel++
		steps++
		if steps > 100 {
			t.Fatalf("clear rubble did not terminate")
		}
	}
	if steps != DefaultClearObstructionLevel {
		t.Fatalf("clear steps = %d, want %d", steps, DefaultClearObstructionLevel)
	}
	if !r.IsPlantable(tile, t0) {
		t.Fatalf("expected cleared base tile to be plantable")
	}
}

func TestRules_PlantableRequiresNoCrop(t *testing.T) {
	r := DefaultRules()
	tile := Tile{ObstructionLevel: DefaultClearObstructionLevel, IsBaseTile: true, Crop: &Crop{Type: CropWheat, Level: 1, PlantedAt: t0}}
	if r.IsPlantable(tile, t0) {
		t.Fatalf("tile with crop must not be plantable")
	}
}

func TestRules_WheatHarvestableAtGrowthTime(t *testing.T) {
	r := DefaultRules()
	crop := Crop{Type: CropWheat, Level: 1, PlantedAt: t0}
	tile := Tile{ObstructionLevel: DefaultClearObstructionLevel, IsBaseTile: true, Crop: &crop}
	growth := r.TotalGrowthDuration(CropWheat, 1)
	if growth != 15*time.Minute {
		t.Fatalf("wheat growth = %s, want 15m", growth)
	}
	if r.CanHarvest(tile, t0.Add(growth-time.Millisecond)) {
		t.Fatalf("harvestable before growth time")
	}
	if !r.CanHarvest(tile, t0.Add(growth)) {
		t.Fatalf("expected harvestable at growth time")
	}
	if got := r.HarvestYield(crop); got != 1 {
		t.Fatalf("yield = %d, want 1", got)
	}
	if r.CanSpeedGrow(tile, t0.Add(growth)) {
		t.Fatalf("harvestable crop must not be speed-grown")
	}
	if !r.CanSpeedGrow(tile, t0) {
		t.Fatalf("growing crop on base tile should accept speed-grow")
	}
}

func TestRules_CanHarvestWithoutCrop(t *testing.T) {
	r := DefaultRules()
	if r.CanHarvest(Tile{IsBaseTile: true, ObstructionLevel: DefaultClearObstructionLevel}, t0) {
		t.Fatalf("empty tile must not be harvestable")
	}
}

func TestRules_SpeedGrowCostMonotonic(t *testing.T) {
	r := DefaultRules()
	want := map[int]int64{1: 1, 2: 2, 3: 4, 4: 5, 5: 6}
	prev := int64(-1)
	for level := 1; level <= 5; level++ {
		got := r.SpeedGrowCost(level)
		if got != want[level] {
			t.Fatalf("speed grow cost(level=%d) = %d, want %d", level, got, want[level])
		}
		if got < prev {
			t.Fatalf("speed grow cost not monotonic at level %d", level)
		}
		prev = got
	}
}

func TestRules_CheckInvariants(t *testing.T) {
	r := DefaultRules()
	if err := r.CheckInvariants(Tile{ObstructionLevel: 1, Crop: &Crop{Type: CropWheat, Level: 1}}); err != ErrCropOnObstructedTile {
		t.Fatalf("expected ErrCropOnObstructedTile, got %v", err)
	}
	if err := r.CheckInvariants(Tile{IsBaseTile: true, IsLeasable: true}); err != ErrBaseTileLeaseState {
		t.Fatalf("expected ErrBaseTileLeaseState, got %v", err)
	}
	if err := r.CheckInvariants(Tile{ObstructionLevel: 9}); err != ErrObstructionOutOfRange {
		t.Fatalf("expected ErrObstructionOutOfRange, got %v", err)
	}
	if err := r.CheckInvariants(Tile{IsLeasable: true, ObstructionLevel: 2}); err != nil {
		t.Fatalf("unexpected invariant error: %v", err)
	}
}
