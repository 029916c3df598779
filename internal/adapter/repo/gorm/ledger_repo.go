package gormrepo

import (
	"context"
	"errors"
	"time"

	"harvesthorizon/internal/adapter/repo/gorm/model"
	"harvesthorizon/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepo {
	return LedgerRepo{db: db}
}

func (r LedgerRepo) Open(ctx context.Context, ownerID string, initial int64) error {
	row := model.Ledger{OwnerID: ownerID, Balance: initial, UpdatedAt: time.Now()}
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(&row).Error
}

func (r LedgerRepo) GetBalance(ctx context.Context, ownerID string) (int64, error) {
	var row model.Ledger
	if err := conn(ctx, r.db).Where("owner_id = ?", ownerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ports.ErrNotFound
		}
		return 0, err
	}
	return row.Balance, nil
}

// Debit locks the owner's row, checks the balance and applies the debit in
// one transaction, so concurrent debits for one owner serialize.
func (r LedgerRepo) Debit(ctx context.Context, ownerID string, amount int64) (int64, error) {
	var balance int64
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var row model.Ledger
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("owner_id = ?", ownerID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		balance = row.Balance
		if amount > row.Balance {
			return ports.ErrInsufficientFunds
		}
		res := tx.Model(&model.Ledger{}).
			Where("owner_id = ?", ownerID).
			Updates(map[string]any{
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ports.ErrConflict
		}
		balance = row.Balance - amount
		return nil
	})
	return balance, err
}

func (r LedgerRepo) Credit(ctx context.Context, ownerID string, amount int64) (int64, error) {
	var row model.Ledger
	res := conn(ctx, r.db).
		Model(&row).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "balance"}}}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ports.ErrNotFound
	}
	return row.Balance, nil
}
