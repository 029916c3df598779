package ports

import (
	"context"

	"harvesthorizon/internal/domain/farm"
)

type MapSpec struct {
	Width  int
	Height int
	Seed   int64
}

// MapGenerator produces the initial tile grid of a new map. Generated tiles
// never carry crops.
type MapGenerator interface {
	Generate(ctx context.Context, spec MapSpec) ([]farm.Tile, error)
}
