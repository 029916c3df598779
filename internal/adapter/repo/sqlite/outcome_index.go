// Package sqliterepo keeps an embedded, file-backed index of action outcomes
// for deployments that run the grid on in-memory stores.
package sqliterepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

const schema = `
CREATE TABLE IF NOT EXISTS action_outcomes (
	outcome_id TEXT PRIMARY KEY,
	map_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	action_kind TEXT NOT NULL,
	requested INTEGER NOT NULL,
	eligible INTEGER NOT NULL,
	applied INTEGER NOT NULL,
	dropped INTEGER NOT NULL,
	cost INTEGER NOT NULL,
	debit_step TEXT NOT NULL,
	inventory_step TEXT NOT NULL,
	grid_step TEXT NOT NULL,
	result TEXT NOT NULL,
	occurred_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_outcomes_map_time ON action_outcomes(map_id, occurred_at_ms DESC);
`

type outcomeRow struct {
	OutcomeID     string `db:"outcome_id"`
	MapID         string `db:"map_id"`
	OwnerID       string `db:"owner_id"`
	RequestID     string `db:"request_id"`
	ActionKind    string `db:"action_kind"`
	Requested     int    `db:"requested"`
	Eligible      int    `db:"eligible"`
	Applied       int    `db:"applied"`
	Dropped       int    `db:"dropped"`
	Cost          int64  `db:"cost"`
	DebitStep     string `db:"debit_step"`
	InventoryStep string `db:"inventory_step"`
	GridStep      string `db:"grid_step"`
	Result        string `db:"result"`
	OccurredAtMS  int64  `db:"occurred_at_ms"`
}

// OutcomeIndex implements ports.OutcomeRepository on SQLite.
type OutcomeIndex struct {
	db *sqlx.DB
}

func Open(path string) (*OutcomeIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty outcome index path")
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open outcome index: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate outcome index: %w", err)
	}
	return &OutcomeIndex{db: db}, nil
}

func (x *OutcomeIndex) Close() error {
	return x.db.Close()
}

func (x *OutcomeIndex) Append(ctx context.Context, o ports.Outcome) error {
	row := outcomeRow{
		OutcomeID:     o.ID,
		MapID:         o.MapID,
		OwnerID:       o.OwnerID,
		RequestID:     o.RequestID,
		ActionKind:    string(o.Kind),
		Requested:     o.Requested,
		Eligible:      o.Eligible,
		Applied:       o.Applied,
		Dropped:       o.Dropped,
		Cost:          o.Cost,
		DebitStep:     string(o.Steps.Debit),
		InventoryStep: string(o.Steps.Inventory),
		GridStep:      string(o.Steps.Grid),
		Result:        o.Result,
		OccurredAtMS:  o.At.UnixMilli(),
	}
	_, err := x.db.NamedExecContext(ctx, `
INSERT INTO action_outcomes (
	outcome_id, map_id, owner_id, request_id, action_kind, requested, eligible,
	applied, dropped, cost, debit_step, inventory_step, grid_step, result, occurred_at_ms
) VALUES (
	:outcome_id, :map_id, :owner_id, :request_id, :action_kind, :requested, :eligible,
	:applied, :dropped, :cost, :debit_step, :inventory_step, :grid_step, :result, :occurred_at_ms
)`, row)
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", o.ID, err)
	}
	return nil
}

func (x *OutcomeIndex) ListByMap(ctx context.Context, mapID string, limit int) ([]ports.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []outcomeRow
	err := x.db.SelectContext(ctx, &rows, `
SELECT * FROM action_outcomes
WHERE map_id = ?
ORDER BY occurred_at_ms DESC, rowid DESC
LIMIT ?`, mapID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	out := make([]ports.Outcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, ports.Outcome{
			ID:        r.OutcomeID,
			MapID:     r.MapID,
			OwnerID:   r.OwnerID,
			RequestID: r.RequestID,
			Kind:      farm.ActionKind(r.ActionKind),
			Requested: r.Requested,
			Eligible:  r.Eligible,
			Applied:   r.Applied,
			Dropped:   r.Dropped,
			Cost:      r.Cost,
			Steps: ports.OutcomeSteps{
				Debit:     ports.StepStatus(r.DebitStep),
				Inventory: ports.StepStatus(r.InventoryStep),
				Grid:      ports.StepStatus(r.GridStep),
			},
			Result: r.Result,
			At:     time.UnixMilli(r.OccurredAtMS).UTC(),
		})
	}
	return out, nil
}

// PurgeMap drops the journal of a deleted map.
func (x *OutcomeIndex) PurgeMap(ctx context.Context, mapID string) (int64, error) {
	res, err := x.db.ExecContext(ctx, `DELETE FROM action_outcomes WHERE map_id = ?`, mapID)
	if err != nil {
		return 0, fmt.Errorf("purge outcomes: %w", err)
	}
	return res.RowsAffected()
}
