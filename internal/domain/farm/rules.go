package farm

import (
	"math"
	"time"
)

// Rules is the stateless rule engine shared by the server action pipeline and
// the client growth mirror. Every method is a pure function of its inputs.
type Rules struct {
	Tuning Tuning
}

func NewRules(t Tuning) Rules {
	return Rules{Tuning: t.withDefaults()}
}

func DefaultRules() Rules {
	return NewRules(DefaultTuning())
}

func (r Rules) ClearLevel() int {
	return r.Tuning.ClearObstructionLevel
}

func (r Rules) IsObstructionCleared(t Tile) bool {
	return t.ObstructionLevel >= r.ClearLevel()
}

// IsActionAllowed reports whether gameplay actions are permitted on the tile:
// base tiles always, other tiles only while leased with rent not yet due.
func (r Rules) IsActionAllowed(t Tile, now time.Time) bool {
	if t.IsBaseTile {
		return true
	}
	return !t.IsLeasable && t.NextRentDue != nil && t.NextRentDue.After(now)
}

func (r Rules) IsPlantable(t Tile, now time.Time) bool {
	return r.IsObstructionCleared(t) && !t.HasCrop() && r.IsActionAllowed(t, now)
}

func (r Rules) CanClearRubble(t Tile, now time.Time) bool {
	return !r.IsObstructionCleared(t) && r.IsActionAllowed(t, now)
}

func (r Rules) CanHarvest(t Tile, now time.Time) bool {
	if !t.HasCrop() {
		return false
	}
	return now.Sub(t.Crop.PlantedAt) >= r.TotalGrowthDuration(t.Crop.Type, t.Crop.Level)
}

func (r Rules) CanSpeedGrow(t Tile, now time.Time) bool {
	return t.HasCrop() && !r.CanHarvest(t, now) && r.IsActionAllowed(t, now)
}

func (r Rules) CanLease(t Tile) bool {
	return !t.IsBaseTile && t.IsLeasable && t.NextRentDue == nil
}

func (r Rules) CanPayRent(t Tile, now time.Time) bool {
	return !t.IsBaseTile && !t.IsLeasable && t.NextRentDue != nil && !t.NextRentDue.After(now)
}

func (r Rules) StageCount(ct CropType) int {
	spec, ok := r.Tuning.Crop(ct)
	if !ok {
		return 2
	}
	return spec.Stages
}

// StageDuration is the per-stage growth time for a crop, stretched by the
// crop's level_duration_pct for every level above 1.
func (r Rules) StageDuration(ct CropType, level int) time.Duration {
	spec, ok := r.Tuning.Crop(ct)
	if !ok {
		return time.Minute
	}
	if level < 1 {
		level = 1
	}
	pct := 100 + int64(level-1)*int64(spec.LevelDurationPct)
	return time.Duration(int64(spec.StageDuration) * pct / 100)
}

// TotalGrowthDuration is the time from planting until the final stage, which
// is also the earliest harvest time.
func (r Rules) TotalGrowthDuration(ct CropType, level int) time.Duration {
	return time.Duration(r.StageCount(ct)-1) * r.StageDuration(ct, level)
}

func (r Rules) FinalStage(ct CropType) int {
	return r.StageCount(ct) - 1
}

func (r Rules) StageForElapsed(ct CropType, level int, elapsed time.Duration) int {
	per := r.StageDuration(ct, level)
	if per <= 0 || elapsed <= 0 {
		return 0
	}
	stage := int(elapsed / per)
	if final := r.FinalStage(ct); stage > final {
		return final
	}
	return stage
}

// NextStageTimestamp returns the instant the crop leaves stage, or false when
// stage is already final.
func (r Rules) NextStageTimestamp(ct CropType, level int, plantedAt time.Time, stage int) (time.Time, bool) {
	if stage >= r.FinalStage(ct) {
		return time.Time{}, false
	}
	if stage < 0 {
		stage = 0
	}
	return plantedAt.Add(time.Duration(stage+1) * r.StageDuration(ct, level)), true
}

func (r Rules) LeaseCost() int64 {
	return r.Tuning.LeaseCost
}

func (r Rules) RentCost() int64 {
	return r.Tuning.RentCost
}

func (r Rules) NextRentDue(now time.Time) time.Time {
	return now.Add(r.Tuning.LeasePeriod)
}

func (r Rules) SpeedGrowCost(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(float64(level) * r.Tuning.SpeedGrowFactor))
}

// SpeedGrowPlantedAt rewinds the planting time by exactly one stage so stage
// boundaries stay aligned with the original timeline.
func (r Rules) SpeedGrowPlantedAt(c Crop) time.Time {
	return c.PlantedAt.Add(-r.StageDuration(c.Type, c.Level))
}

func (r Rules) HarvestYield(c Crop) int {
	level := c.Level
	if level < 1 {
		level = 1
	}
	return level * r.Tuning.YieldPerLevel
}

func (r Rules) SeedResource(ct CropType) string {
	spec, ok := r.Tuning.Crop(ct)
	if !ok {
		return string(ct) + "_seed"
	}
	return spec.SeedResource
}

func (r Rules) IsKnownCrop(ct CropType) bool {
	_, ok := r.Tuning.Crop(ct)
	return ok
}

func (r Rules) ValidCropLevel(ct CropType, level int) bool {
	spec, ok := r.Tuning.Crop(ct)
	if !ok {
		return false
	}
	return level >= 1 && level <= spec.MaxLevel
}

// CheckInvariants reports the first tile-shape violation, if any.
func (r Rules) CheckInvariants(t Tile) error {
	if t.ObstructionLevel < 0 || t.ObstructionLevel > r.ClearLevel() {
		return ErrObstructionOutOfRange
	}
	if t.HasCrop() && !r.IsObstructionCleared(t) {
		return ErrCropOnObstructedTile
	}
	if t.IsBaseTile && (t.IsLeasable || t.NextRentDue != nil) {
		return ErrBaseTileLeaseState
	}
	return nil
}
