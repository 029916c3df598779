package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
)

var ErrInvalidRequest = errors.New("invalid map request")

const (
	MaxDimension      = 128
	maxNicknameLength = 64

	DefaultStartingBalance = 500
)

type UseCase struct {
	TxManager ports.TxManager
	Grid      ports.GridStore
	Ledger    ports.LedgerStore
	Inventory ports.Inventory
	Generator ports.MapGenerator
	Purger    ports.OutcomePurger
	Rules     farm.Rules
	Logger    *slog.Logger

	StartingBalance int64
	StarterItems    map[string]int

	NewID func() string
	Now   func() time.Time
}

// Create generates and persists a new map. The owner's ledger is opened with
// the starting balance and starter items on their first map only.
func (u UseCase) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.OwnerID == "" || req.Nickname == "" || utf8.RuneCountInString(req.Nickname) > maxNicknameLength {
		return CreateResponse{}, ErrInvalidRequest
	}
	if req.Width < 1 || req.Width > MaxDimension || req.Height < 1 || req.Height > MaxDimension {
		return CreateResponse{}, ErrInvalidRequest
	}
	if len(u.Rules.Tuning.Crops) == 0 {
		u.Rules = farm.DefaultRules()
	}

	tiles, err := u.Generator.Generate(ctx, ports.MapSpec{Width: req.Width, Height: req.Height, Seed: req.Seed})
	if err != nil {
		return CreateResponse{}, fmt.Errorf("generate map: %w", err)
	}
	for _, t := range tiles {
		if err := u.Rules.CheckInvariants(t); err != nil {
			return CreateResponse{}, fmt.Errorf("generated tile %d,%d: %w", t.X, t.Y, err)
		}
	}

	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	newID := u.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	m := farm.Map{
		ID:        newID(),
		OwnerID:   req.OwnerID,
		Nickname:  req.Nickname,
		Width:     req.Width,
		Height:    req.Height,
		Tiles:     tiles,
		CreatedAt: nowFn().UTC(),
	}

	starting := u.StartingBalance
	if starting <= 0 {
		starting = DefaultStartingBalance
	}
	var balance int64
	err = u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := u.Grid.CreateMap(txCtx, m); err != nil {
			return err
		}
		current, err := u.Ledger.GetBalance(txCtx, req.OwnerID)
		if err == nil {
			balance = current
			return nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return err
		}
		if err := u.Ledger.Open(txCtx, req.OwnerID, starting); err != nil {
			return err
		}
		balance = starting
		if len(u.StarterItems) > 0 && u.Inventory != nil {
			return u.Inventory.Credit(txCtx, req.OwnerID, u.StarterItems)
		}
		return nil
	})
	if err != nil {
		return CreateResponse{}, err
	}
	return CreateResponse{MapID: m.ID, TileCount: len(tiles), Balance: balance}, nil
}

func (u UseCase) Delete(ctx context.Context, req DeleteRequest) error {
	mapID := strings.TrimSpace(req.MapID)
	if mapID == "" {
		return ErrInvalidRequest
	}
	if err := u.Grid.DeleteMap(ctx, mapID); err != nil {
		return err
	}
	if u.Purger != nil {
		if _, err := u.Purger.PurgeMap(ctx, mapID); err != nil {
			logger := u.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("purge outcome index", "map_id", mapID, "err", err)
		}
	}
	return nil
}

// DefaultStarterItems grants a handful of seeds for every crop in the catalog.
func DefaultStarterItems(rules farm.Rules) map[string]int {
	out := map[string]int{}
	for ct := range rules.Tuning.Crops {
		out[rules.SeedResource(ct)] = 10
	}
	return out
}
