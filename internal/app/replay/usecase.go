package replay

import (
	"context"
	"errors"
	"strings"

	"harvesthorizon/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid replay request")

const (
	defaultLimit = 50
	maxLimit     = 500
)

type UseCase struct {
	Outcomes ports.OutcomeRepository
}

// Execute lists the outcome journal of a map, newest first.
func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.MapID) == "" {
		return Response{}, ErrInvalidRequest
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	outcomes, err := u.Outcomes.ListByMap(ctx, req.MapID, limit)
	if err != nil {
		return Response{}, err
	}
	outcomes = filterByTimeWindow(outcomes, req.OccurredFrom, req.OccurredTo)
	return Response{Outcomes: outcomes, Summary: summarize(outcomes)}, nil
}

func filterByTimeWindow(outcomes []ports.Outcome, from, to int64) []ports.Outcome {
	if from <= 0 && to <= 0 {
		return outcomes
	}
	out := make([]ports.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		ts := o.At.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, o)
	}
	return out
}

func summarize(outcomes []ports.Outcome) Summary {
	s := Summary{Batches: len(outcomes)}
	for _, o := range outcomes {
		s.Applied += o.Applied
		s.Dropped += o.Dropped
		s.CoinsSpent += o.Cost
		if o.Inconsistent() {
			s.Inconsistent++
		}
	}
	return s
}
