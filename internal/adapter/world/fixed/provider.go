// Package fixed generates flat, fully cleared maps. It backs tests and demo
// servers that need a predictable grid.
package fixed

import (
	"context"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

// Provider marks every tile within BaseRadius of the centre as base and the
// rest as leasable. All tiles start clear.
type Provider struct {
	BaseRadius int
	ClearLevel int
}

func (p Provider) Generate(_ context.Context, spec ports.MapSpec) ([]farm.Tile, error) {
	clear := p.ClearLevel
	if clear <= 0 {
		clear = farm.DefaultClearObstructionLevel
	}
	cx, cy := (spec.Width-1)/2, (spec.Height-1)/2
	tiles := make([]farm.Tile, 0, spec.Width*spec.Height)
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			dx, dy := abs(x-cx), abs(y-cy)
			base := dx <= p.BaseRadius && dy <= p.BaseRadius
			tiles = append(tiles, farm.Tile{X: x, Y: y, ObstructionLevel: clear, IsBaseTile: base, IsLeasable: !base})
		}
	}
	return tiles, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
