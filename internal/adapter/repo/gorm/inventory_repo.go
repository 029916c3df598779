package gormrepo

import (
	"context"
	"errors"

	"harvesthorizon/internal/adapter/repo/gorm/model"
	"harvesthorizon/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepo {
	return InventoryRepo{db: db}
}

func (r InventoryRepo) HasEnough(ctx context.Context, ownerID, resource string, count int) (bool, error) {
	var row model.Inventory
	err := conn(ctx, r.db).
		Where("owner_id = ? AND resource = ?", ownerID, resource).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return count <= 0, nil
		}
		return false, err
	}
	return int(row.Quantity) >= count, nil
}

// Deduct is a single conditional decrement; it never drives a stack negative.
func (r InventoryRepo) Deduct(ctx context.Context, ownerID, resource string, count int) error {
	if count <= 0 {
		return nil
	}
	res := conn(ctx, r.db).
		Model(&model.Inventory{}).
		Where("owner_id = ? AND resource = ? AND quantity >= ?", ownerID, resource, count).
		Update("quantity", gorm.Expr("quantity - ?", count))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrInsufficientQuantity
	}
	return nil
}

func (r InventoryRepo) Credit(ctx context.Context, ownerID string, items map[string]int) error {
	rows := make([]model.Inventory, 0, len(items))
	for resource, qty := range items {
		if qty <= 0 {
			continue
		}
		rows = append(rows, model.Inventory{OwnerID: ownerID, Resource: resource, Quantity: int32(qty)})
	}
	if len(rows) == 0 {
		return nil
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "resource"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("inventories.quantity + excluded.quantity"),
		}),
	}).Create(&rows).Error
}

func (r InventoryRepo) List(ctx context.Context, ownerID string) (map[string]int, error) {
	var rows []model.Inventory
	if err := conn(ctx, r.db).Where("owner_id = ?", ownerID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Resource] = int(row.Quantity)
	}
	return out, nil
}
