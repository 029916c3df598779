package status

import (
	"context"
	"errors"
	"strings"

	"harvesthorizon/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid status request")

type UseCase struct {
	Ledger    ports.LedgerStore
	Inventory ports.Inventory
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return Response{}, ErrInvalidRequest
	}
	balance, err := u.Ledger.GetBalance(ctx, ownerID)
	if err != nil {
		return Response{}, err
	}
	items := map[string]int{}
	if u.Inventory != nil {
		listed, err := u.Inventory.List(ctx, ownerID)
		if err != nil {
			return Response{}, err
		}
		for k, v := range listed {
			if v > 0 {
				items[k] = v
			}
		}
	}
	return Response{OwnerID: ownerID, Balance: balance, Inventory: items}, nil
}
