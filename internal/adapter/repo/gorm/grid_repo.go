package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"harvesthorizon/internal/adapter/repo/gorm/model"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tileInsertBatch = 500

type GridRepo struct {
	db *gorm.DB
}

func NewGridRepo(db *gorm.DB) GridRepo {
	return GridRepo{db: db}
}

func (r GridRepo) GetMap(ctx context.Context, mapID string) (farm.Map, error) {
	db := conn(ctx, r.db)
	var row model.Map
	if err := db.Where("map_id = ?", mapID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return farm.Map{}, ports.ErrNotFound
		}
		return farm.Map{}, err
	}
	var tiles []model.Tile
	if err := db.Where("map_id = ?", mapID).Order("y ASC, x ASC").Find(&tiles).Error; err != nil {
		return farm.Map{}, err
	}
	out := farm.Map{
		ID:        row.MapID,
		OwnerID:   row.OwnerID,
		Nickname:  row.Nickname,
		Width:     int(row.Width),
		Height:    int(row.Height),
		CreatedAt: row.CreatedAt.UTC(),
		Tiles:     make([]farm.Tile, 0, len(tiles)),
	}
	for _, t := range tiles {
		out.Tiles = append(out.Tiles, toDomainTile(t))
	}
	return out, nil
}

func (r GridRepo) CreateMap(ctx context.Context, m farm.Map) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		row := model.Map{
			MapID:     m.ID,
			OwnerID:   m.OwnerID,
			Nickname:  m.Nickname,
			Width:     int32(m.Width),
			Height:    int32(m.Height),
			CreatedAt: m.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("create map %s: %w", m.ID, ports.ErrConflict)
			}
			return fmt.Errorf("insert map: %w", err)
		}
		rows := make([]model.Tile, 0, len(m.Tiles))
		for _, t := range m.Tiles {
			rows = append(rows, toModelTile(m.ID, t))
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, tileInsertBatch).Error; err != nil {
			return fmt.Errorf("insert tiles: %w", err)
		}
		return nil
	})
}

func (r GridRepo) DeleteMap(ctx context.Context, mapID string) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("map_id = ?", mapID).Delete(&model.Tile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("map_id = ?", mapID).Delete(&model.ActionOutcome{}).Error; err != nil {
			return err
		}
		res := tx.Where("map_id = ?", mapID).Delete(&model.Map{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ports.ErrNotFound
		}
		return nil
	})
}

// ApplyTileOps issues one conditional UPDATE per op, bumping the tile version
// and returning it. An op whose filter no longer matches affects zero rows and
// is reported as not applied.
func (r GridRepo) ApplyTileOps(ctx context.Context, mapID string, ops []farm.TileOp) (farm.TileBatchResult, error) {
	db := conn(ctx, r.db)
	res := farm.TileBatchResult{Results: make([]farm.TileOpResult, 0, len(ops))}
	for _, op := range ops {
		updates := patchColumns(op.Set)
		if len(updates) == 0 {
			res.Results = append(res.Results, farm.TileOpResult{Coord: op.Coord})
			continue
		}
		updates["version"] = gorm.Expr("version + 1")
		var row model.Tile
		q := expectScope(db.Model(&row).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "version"}}}).
			Where("map_id = ? AND x = ? AND y = ?", mapID, op.Coord.X, op.Coord.Y), op.Expect)
		out := q.Updates(updates)
		if out.Error != nil {
			return res, fmt.Errorf("update tile %d,%d: %w", op.Coord.X, op.Coord.Y, out.Error)
		}
		result := farm.TileOpResult{Coord: op.Coord, Applied: out.RowsAffected > 0}
		if result.Applied {
			result.Version = row.Version
			res.AppliedCount++
		}
		res.Results = append(res.Results, result)
	}
	return res, nil
}

func expectScope(q *gorm.DB, e farm.TileExpect) *gorm.DB {
	if e.ObstructionLevel != nil {
		q = q.Where("obstruction_level = ?", *e.ObstructionLevel)
	}
	if e.CropAbsent {
		q = q.Where("crop_type IS NULL")
	}
	if e.Crop != nil {
		q = q.Where("crop_type = ? AND crop_planted_at = ?", string(e.Crop.Type), e.Crop.PlantedAt)
	}
	if e.IsBaseTile != nil {
		q = q.Where("is_base_tile = ?", *e.IsBaseTile)
	}
	if e.IsLeasable != nil {
		q = q.Where("is_leasable = ?", *e.IsLeasable)
	}
	if e.RentDueAbsent {
		q = q.Where("next_rent_due IS NULL")
	}
	if e.RentDue != nil {
		q = q.Where("next_rent_due = ?", *e.RentDue)
	}
	return q
}

func patchColumns(p farm.TilePatch) map[string]any {
	updates := map[string]any{}
	if p.ObstructionLevel != nil {
		updates["obstruction_level"] = int32(*p.ObstructionLevel)
	}
	if p.CropRemoved {
		updates["crop_type"] = nil
		updates["crop_level"] = nil
		updates["crop_planted_at"] = nil
	}
	if p.Crop != nil {
		updates["crop_type"] = string(p.Crop.Type)
		updates["crop_level"] = int32(p.Crop.Level)
		updates["crop_planted_at"] = p.Crop.PlantedAt
	}
	if p.IsLeasable != nil {
		updates["is_leasable"] = *p.IsLeasable
	}
	if p.NextRentDue != nil {
		updates["next_rent_due"] = *p.NextRentDue
	}
	return updates
}

func toModelTile(mapID string, t farm.Tile) model.Tile {
	row := model.Tile{
		MapID:            mapID,
		X:                int32(t.X),
		Y:                int32(t.Y),
		ObstructionLevel: int32(t.ObstructionLevel),
		IsBaseTile:       t.IsBaseTile,
		IsLeasable:       t.IsLeasable,
		NextRentDue:      t.NextRentDue,
		Version:          t.Version,
	}
	if t.HasCrop() {
		ct := string(t.Crop.Type)
		level := int32(t.Crop.Level)
		planted := t.Crop.PlantedAt
		row.CropType = &ct
		row.CropLevel = &level
		row.CropPlantedAt = &planted
	}
	return row
}

func toDomainTile(row model.Tile) farm.Tile {
	t := farm.Tile{
		X:                int(row.X),
		Y:                int(row.Y),
		ObstructionLevel: int(row.ObstructionLevel),
		IsBaseTile:       row.IsBaseTile,
		IsLeasable:       row.IsLeasable,
		Version:          row.Version,
	}
	if row.NextRentDue != nil {
		due := row.NextRentDue.UTC()
		t.NextRentDue = &due
	}
	if row.CropType != nil && *row.CropType != "" {
		crop := farm.Crop{Type: farm.CropType(*row.CropType), Level: farm.DefaultCropLevel}
		if row.CropLevel != nil {
			crop.Level = int(*row.CropLevel)
		}
		if row.CropPlantedAt != nil {
			crop.PlantedAt = row.CropPlantedAt.UTC()
		}
		t.Crop = &crop
	}
	return t
}
