package gormrepo

import (
	"context"

	"harvesthorizon/internal/adapter/repo/gorm/model"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"

	"gorm.io/gorm"
)

type OutcomeRepo struct {
	db *gorm.DB
}

func NewOutcomeRepo(db *gorm.DB) OutcomeRepo {
	return OutcomeRepo{db: db}
}

func (r OutcomeRepo) Append(ctx context.Context, o ports.Outcome) error {
	row := model.ActionOutcome{
		OutcomeID:     o.ID,
		MapID:         o.MapID,
		OwnerID:       o.OwnerID,
		RequestID:     o.RequestID,
		ActionKind:    string(o.Kind),
		Requested:     int32(o.Requested),
		Eligible:      int32(o.Eligible),
		Applied:       int32(o.Applied),
		Dropped:       int32(o.Dropped),
		Cost:          o.Cost,
		DebitStep:     string(o.Steps.Debit),
		InventoryStep: string(o.Steps.Inventory),
		GridStep:      string(o.Steps.Grid),
		Result:        o.Result,
		OccurredAt:    o.At,
	}
	return conn(ctx, r.db).Create(&row).Error
}

func (r OutcomeRepo) ListByMap(ctx context.Context, mapID string, limit int) ([]ports.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.ActionOutcome
	err := conn(ctx, r.db).
		Where("map_id = ?", mapID).
		Order("occurred_at DESC, outcome_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.Outcome, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.Outcome{
			ID:        row.OutcomeID,
			MapID:     row.MapID,
			OwnerID:   row.OwnerID,
			RequestID: row.RequestID,
			Kind:      farm.ActionKind(row.ActionKind),
			Requested: int(row.Requested),
			Eligible:  int(row.Eligible),
			Applied:   int(row.Applied),
			Dropped:   int(row.Dropped),
			Cost:      row.Cost,
			Steps: ports.OutcomeSteps{
				Debit:     ports.StepStatus(row.DebitStep),
				Inventory: ports.StepStatus(row.InventoryStep),
				Grid:      ports.StepStatus(row.GridStep),
			},
			Result: row.Result,
			At:     row.OccurredAt.UTC(),
		})
	}
	return out, nil
}
