package farm

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultClearObstructionLevel = 4

	DefaultLeaseCost   = 100
	DefaultRentCost    = 50
	DefaultLeasePeriod = 7 * 24 * time.Hour

	DefaultSpeedGrowFactor = 1.345
	DefaultYieldPerLevel   = 1

	DefaultEarlyFireTolerance = 300 * time.Millisecond

	DefaultCropLevel    = 1
	DefaultCropMaxLevel = 5
)

type CropSpec struct {
	Stages           int           `yaml:"stages" json:"stages"`
	StageDuration    time.Duration `yaml:"stage_duration" json:"stage_duration"`
	LevelDurationPct int           `yaml:"level_duration_pct" json:"level_duration_pct"`
	MaxLevel         int           `yaml:"max_level" json:"max_level"`
	SeedResource     string        `yaml:"seed_resource" json:"seed_resource"`
}

type Tuning struct {
	ClearObstructionLevel int                   `yaml:"clear_obstruction_level" json:"clear_obstruction_level"`
	LeaseCost             int64                 `yaml:"lease_cost" json:"lease_cost"`
	RentCost              int64                 `yaml:"rent_cost" json:"rent_cost"`
	LeasePeriod           time.Duration         `yaml:"lease_period" json:"lease_period"`
	SpeedGrowFactor       float64               `yaml:"speed_grow_factor" json:"speed_grow_factor"`
	YieldPerLevel         int                   `yaml:"yield_per_level" json:"yield_per_level"`
	EarlyFireTolerance    time.Duration         `yaml:"early_fire_tolerance" json:"early_fire_tolerance"`
	Crops                 map[CropType]CropSpec `yaml:"crops" json:"crops"`
}

func DefaultTuning() Tuning {
	return Tuning{
		ClearObstructionLevel: DefaultClearObstructionLevel,
		LeaseCost:             DefaultLeaseCost,
		RentCost:              DefaultRentCost,
		LeasePeriod:           DefaultLeasePeriod,
		SpeedGrowFactor:       DefaultSpeedGrowFactor,
		YieldPerLevel:         DefaultYieldPerLevel,
		EarlyFireTolerance:    DefaultEarlyFireTolerance,
		Crops: map[CropType]CropSpec{
			CropWheat:  {Stages: 4, StageDuration: 5 * time.Minute, LevelDurationPct: 10, MaxLevel: DefaultCropMaxLevel, SeedResource: "wheat_seed"},
			CropCorn:   {Stages: 5, StageDuration: 8 * time.Minute, LevelDurationPct: 10, MaxLevel: DefaultCropMaxLevel, SeedResource: "corn_seed"},
			CropCarrot: {Stages: 3, StageDuration: 4 * time.Minute, LevelDurationPct: 5, MaxLevel: DefaultCropMaxLevel, SeedResource: "carrot_seed"},
		},
	}
}

// LoadTuning reads a YAML tuning file over the compiled defaults. An empty
// path returns the defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	return ParseTuning(raw)
}

func ParseTuning(raw []byte) (Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.withDefaults(), nil
}

func (t Tuning) withDefaults() Tuning {
	def := DefaultTuning()
	if t.ClearObstructionLevel <= 0 {
		t.ClearObstructionLevel = def.ClearObstructionLevel
	}
	if t.LeaseCost < 0 {
		t.LeaseCost = def.LeaseCost
	}
	if t.RentCost < 0 {
		t.RentCost = def.RentCost
	}
	if t.LeasePeriod <= 0 {
		t.LeasePeriod = def.LeasePeriod
	}
	if t.SpeedGrowFactor <= 1 {
		t.SpeedGrowFactor = def.SpeedGrowFactor
	}
	if t.YieldPerLevel <= 0 {
		t.YieldPerLevel = def.YieldPerLevel
	}
	if t.EarlyFireTolerance < 0 {
		t.EarlyFireTolerance = def.EarlyFireTolerance
	}
	if len(t.Crops) == 0 {
		t.Crops = def.Crops
	}
	for ct, spec := range t.Crops {
		if spec.Stages < 2 {
			spec.Stages = 2
		}
		if spec.StageDuration <= 0 {
			spec.StageDuration = time.Minute
		}
		if spec.LevelDurationPct < 0 {
			spec.LevelDurationPct = 0
		}
		if spec.MaxLevel <= 0 {
			spec.MaxLevel = DefaultCropMaxLevel
		}
		if spec.SeedResource == "" {
			spec.SeedResource = string(ct) + "_seed"
		}
		t.Crops[ct] = spec
	}
	return t
}

func (t Tuning) Crop(ct CropType) (CropSpec, bool) {
	spec, ok := t.Crops[ct]
	return spec, ok
}
