package mapview

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"harvesthorizon/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid map view request")

type UseCase struct {
	Grid   ports.GridStore
	Ledger ports.LedgerStore
	Now    func() time.Time
}

// Execute returns every tile of the map plus the viewer's balance. A viewer
// without a ledger sees a zero balance.
func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	mapID := strings.TrimSpace(req.MapID)
	if mapID == "" {
		return Response{}, ErrInvalidRequest
	}
	m, err := u.Grid.GetMap(ctx, mapID)
	if err != nil {
		return Response{}, err
	}
	sort.Slice(m.Tiles, func(i, j int) bool {
		if m.Tiles[i].Y != m.Tiles[j].Y {
			return m.Tiles[i].Y < m.Tiles[j].Y
		}
		return m.Tiles[i].X < m.Tiles[j].X
	})

	var balance int64
	if ownerID := strings.TrimSpace(req.OwnerID); ownerID != "" && u.Ledger != nil {
		balance, err = u.Ledger.GetBalance(ctx, ownerID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return Response{}, err
		}
	}

	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return Response{Map: m, Balance: balance, ServerTime: nowFn().UTC()}, nil
}
