package farm

import "errors"

var (
	ErrObstructionOutOfRange = errors.New("obstruction level out of range")
	ErrCropOnObstructedTile  = errors.New("crop on obstructed tile")
	ErrBaseTileLeaseState    = errors.New("base tile carries lease state")
)
