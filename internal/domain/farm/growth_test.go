package farm

import (
	"testing"
	"time"
)

func TestStageForElapsed_Clamped(t *testing.T) {
	r := DefaultRules()
	per := r.StageDuration(CropWheat, 1)
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Minute, 0},
		{per - time.Nanosecond, 0},
		{per, 1},
		{2*per + time.Second, 2},
		{3 * per, 3},
		{100 * per, 3},
	}
	for _, tc := range cases {
		if got := r.StageForElapsed(CropWheat, 1, tc.elapsed); got != tc.want {
			t.Fatalf("StageForElapsed(%s) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestNextStageTimestamp_FinalStageHasNone(t *testing.T) {
	r := DefaultRules()
	per := r.StageDuration(CropWheat, 1)
	for stage := 0; stage < r.FinalStage(CropWheat); stage++ {
		next, ok := r.NextStageTimestamp(CropWheat, 1, t0, stage)
		if !ok {
			t.Fatalf("stage %d should have a next timestamp", stage)
		}
		if want := t0.Add(time.Duration(stage+1) * per); !next.Equal(want) {
			t.Fatalf("stage %d next = %s, want %s", stage, next, want)
		}
	}
	if _, ok := r.NextStageTimestamp(CropWheat, 1, t0, r.FinalStage(CropWheat)); ok {
		t.Fatalf("final stage must not have a next timestamp")
	}
}

func TestStageDuration_ScalesWithLevel(t *testing.T) {
	r := DefaultRules()
	base := r.StageDuration(CropWheat, 1)
	l3 := r.StageDuration(CropWheat, 3)
	if want := base * 120 / 100; l3 != want {
		t.Fatalf("level 3 stage = %s, want %s", l3, want)
	}
	if r.StageDuration(CropWheat, 0) != base {
		t.Fatalf("level below 1 should clamp to level 1")
	}
}

func TestSpeedGrow_IsStageDurationExact(t *testing.T) {
	r := DefaultRules()
	crop := Crop{Type: CropCorn, Level: 2, PlantedAt: t0}
	per := r.StageDuration(crop.Type, crop.Level)
	baseline, _ := r.NextStageTimestamp(crop.Type, crop.Level, t0, 0)

	for k := 1; k <= 3; k++ {
		crop.PlantedAt = r.SpeedGrowPlantedAt(crop)
		if got := t0.Sub(crop.PlantedAt); got != time.Duration(k)*per {
			t.Fatalf("after %d speed-grows rewind = %s, want %s", k, got, time.Duration(k)*per)
		}
		stage := r.StageForElapsed(crop.Type, crop.Level, t0.Sub(crop.PlantedAt))
		if stage != k {
			t.Fatalf("after %d speed-grows stage = %d, want %d", k, stage, k)
		}
		next, ok := r.NextStageTimestamp(crop.Type, crop.Level, crop.PlantedAt, 0)
		if !ok {
			t.Fatalf("stage 0 must have next timestamp")
		}
		if baseline.Sub(next) != time.Duration(k)*per {
			t.Fatalf("after %d speed-grows next stage moved %s, want %s", k, baseline.Sub(next), time.Duration(k)*per)
		}
	}
}

func TestPlant_StartsAtStageZero(t *testing.T) {
	r := DefaultRules()
	for ct := range r.Tuning.Crops {
		if got := r.StageForElapsed(ct, 1, 0); got != 0 {
			t.Fatalf("%s: stage at plant = %d, want 0", ct, got)
		}
	}
}
