package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

const tracerName = "harvesthorizon/internal/app/action"

var (
	ErrInvalidRequest       = errors.New("invalid action request")
	ErrInvalidActionParams  = errors.New("invalid action params")
	ErrMapNotFound          = errors.New("map not found")
	ErrLedgerNotFound       = errors.New("ledger not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrGridWriteFailed      = errors.New("grid write failed")
)

type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: required %d, available %d", ErrInsufficientFunds, e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

type InsufficientResourceError struct {
	Resource  string
	Required  int
	Available int
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("%s: %s required %d, available %d", ErrInsufficientResource, e.Resource, e.Required, e.Available)
}

func (e *InsufficientResourceError) Unwrap() error {
	return ErrInsufficientResource
}

// GridWriteFailedError is returned when the grid store rejects a batch. When
// Charged is set the debit or seed deduction already landed and was not
// compensated.
type GridWriteFailedError struct {
	Charged bool
	Err     error
}

func (e *GridWriteFailedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGridWriteFailed, e.Err)
}

func (e *GridWriteFailedError) Unwrap() []error {
	return []error{ErrGridWriteFailed, e.Err}
}

type UseCase struct {
	Grid      ports.GridStore
	Ledger    ports.LedgerStore
	Inventory ports.Inventory
	Broadcast ports.Broadcaster
	Outcomes  ports.OutcomeRepository
	Alerts    ports.AlertSink
	Metrics   ports.ActionMetrics
	Rules     farm.Rules
	Tracer    trace.Tracer
	Logger    *slog.Logger
	NewID     func() string
	Now       func() time.Time
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	ac, err := u.ValidateRequest(req)
	if err != nil {
		u.recordFailure(farm.NormalizeActionKind(string(req.Intent.Kind)), err)
		return Response{}, err
	}

	if len(u.Rules.Tuning.Crops) == 0 {
		u.Rules = farm.DefaultRules()
	}
	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	ac.In.NowAt = nowFn().UTC().Truncate(time.Millisecond)
	ac.Tmp.OutcomeID = u.newID()

	ctx, span := u.tracer().Start(ctx, "action.Execute", trace.WithAttributes(
		attribute.String("action.kind", string(ac.In.Kind)),
		attribute.String("map.id", ac.In.MapID),
		attribute.Int("tiles.requested", len(ac.In.Coords)),
	))
	defer span.End()

	out, err := u.run(ctx, &ac)
	u.JournalOutcome(ctx, &ac, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, FailureReason(err))
		u.recordFailure(ac.In.Kind, err)
		u.logger().Warn("action rejected",
			"action_kind", ac.In.Kind,
			"map_id", ac.In.MapID,
			"owner_id", ac.In.OwnerID,
			"reason", FailureReason(err),
			"err", err,
		)
		return Response{}, err
	}
	span.SetAttributes(
		attribute.Int("tiles.applied", out.AppliedCount),
		attribute.String("result.code", string(out.ResultCode)),
	)
	if u.Metrics != nil {
		u.Metrics.RecordSuccess(ac.In.Kind, out.ResultCode)
	}
	return out, nil
}

func (u UseCase) run(ctx context.Context, ac *ActionContext) (Response, error) {
	if err := u.ResolveSpec(ac); err != nil {
		return Response{}, err
	}
	if err := u.RunPrechecks(ctx, ac); err != nil {
		return Response{}, err
	}
	if err := u.LoadMap(ctx, ac); err != nil {
		return Response{}, err
	}
	u.StageEligible(ac)
	if len(ac.Plan.Staged) == 0 {
		return u.BuildNoopResponse(ac), nil
	}
	if err := u.ChargeLedger(ctx, ac); err != nil {
		return Response{}, err
	}
	if err := u.ChargeResources(ctx, ac); err != nil {
		return Response{}, err
	}
	if err := u.ApplyGrid(ctx, ac); err != nil {
		return Response{}, err
	}
	u.SettleAfterApply(ctx, ac)
	u.PublishDeltas(ctx, ac)
	return u.BuildResponse(ac), nil
}

// FailureReason maps a whole-batch failure to the reason code sent to clients.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	// Checked first: the wrapped store error may itself be a not-found.
	case errors.Is(err, ErrGridWriteFailed):
		return protocol.ReasonGridWriteFailed
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidActionParams):
		return protocol.ReasonBadRequest
	case errors.Is(err, ErrLedgerNotFound):
		return protocol.ReasonLedgerNotFound
	case errors.Is(err, ErrMapNotFound), errors.Is(err, ports.ErrNotFound):
		return protocol.ReasonMapNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return protocol.ReasonInsufficientFunds
	case errors.Is(err, ErrInsufficientResource):
		return protocol.ReasonInsufficientResource
	case errors.Is(err, ports.ErrForbidden):
		return protocol.ReasonForbidden
	default:
		return protocol.ReasonInternal
	}
}

// FailureContext returns the minimal required/available context of a failure.
func FailureContext(err error) map[string]any {
	var funds *InsufficientFundsError
	if errors.As(err, &funds) {
		return map[string]any{"required": funds.Required, "available": funds.Available}
	}
	var res *InsufficientResourceError
	if errors.As(err, &res) {
		return map[string]any{"resource": res.Resource, "required": res.Required, "available": res.Available}
	}
	return nil
}

func (u UseCase) recordFailure(kind farm.ActionKind, err error) {
	if u.Metrics != nil {
		u.Metrics.RecordFailure(kind, FailureReason(err))
	}
}

func (u UseCase) tracer() trace.Tracer {
	if u.Tracer != nil {
		return u.Tracer
	}
	return otel.Tracer(tracerName)
}

func (u UseCase) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

func (u UseCase) newID() string {
	if u.NewID != nil {
		return u.NewID()
	}
	return uuid.NewString()
}
