// Package generator builds new map grids from layered simplex noise.
package generator

import (
	"context"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

type Config struct {
	// BaseRadius is the Chebyshev distance from the map centre that still
	// belongs to the base zone.
	BaseRadius  int
	ClearLevel  int
	Frequency   float64
	Octaves     int
	Persistence float64
}

func DefaultConfig() Config {
	return Config{
		BaseRadius:  2,
		ClearLevel:  farm.DefaultClearObstructionLevel,
		Frequency:   0.12,
		Octaves:     3,
		Persistence: 0.5,
	}
}

// Provider implements ports.MapGenerator. The same seed and size always yield
// the same grid.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) Provider {
	def := DefaultConfig()
	if cfg.BaseRadius < 0 {
		cfg.BaseRadius = def.BaseRadius
	}
	if cfg.ClearLevel <= 0 {
		cfg.ClearLevel = def.ClearLevel
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = def.Frequency
	}
	if cfg.Octaves <= 0 {
		cfg.Octaves = def.Octaves
	}
	if cfg.Persistence <= 0 {
		cfg.Persistence = def.Persistence
	}
	return Provider{cfg: cfg}
}

func (p Provider) Generate(ctx context.Context, spec ports.MapSpec) ([]farm.Tile, error) {
	noise := opensimplex.NewNormalized(spec.Seed)
	cx, cy := (spec.Width-1)/2, (spec.Height-1)/2
	tiles := make([]farm.Tile, 0, spec.Width*spec.Height)
	for y := 0; y < spec.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < spec.Width; x++ {
			if chebyshev(x-cx, y-cy) <= p.cfg.BaseRadius {
				tiles = append(tiles, farm.Tile{X: x, Y: y, ObstructionLevel: p.cfg.ClearLevel, IsBaseTile: true})
				continue
			}
			n := octaveNoise(noise, float64(x), float64(y), p.cfg.Octaves, p.cfg.Frequency, p.cfg.Persistence)
			tiles = append(tiles, farm.Tile{
				X:                x,
				Y:                y,
				ObstructionLevel: obstructionFor(n, p.cfg.ClearLevel),
				IsLeasable:       true,
			})
		}
	}
	return tiles, nil
}

// obstructionFor maps normalized noise in [0,1] onto [0, clear].
func obstructionFor(n float64, clear int) int {
	level := int(math.Floor(n * float64(clear+1)))
	if level < 0 {
		return 0
	}
	if level > clear {
		return clear
	}
	return level
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func chebyshev(dx, dy int) int {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
