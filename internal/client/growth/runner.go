package growth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"harvesthorizon/internal/protocol"
)

// Runner drives one Mirror from a single goroutine. Inbound server messages
// and the scheduler timer are the only two suspension points.
type Runner struct {
	Mirror   *Mirror
	Inbound  <-chan any
	OnNotice func(Notice)
	Logger   *slog.Logger

	Now func() time.Time
	// NewTimer returns a channel that fires after d and a stop func.
	NewTimer func(d time.Duration) (<-chan time.Time, func() bool)
}

// Run returns nil when Inbound is closed, or the context error.
func (r *Runner) Run(ctx context.Context) error {
	for {
		var (
			wake <-chan time.Time
			stop = func() bool { return false }
		)
		if at, ok := r.Mirror.NextWake(); ok {
			d := at.Sub(r.now())
			if d < 0 {
				d = 0
			}
			wake, stop = r.newTimer(d)
		}

		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case msg, ok := <-r.Inbound:
			stop()
			if !ok {
				return nil
			}
			r.handle(msg)
		case <-wake:
			r.emit(r.Mirror.Fire(r.now()))
		}
	}
}

func (r *Runner) handle(msg any) {
	now := r.now()
	switch m := msg.(type) {
	case protocol.MapSyncMsg:
		r.emit(r.Mirror.ApplySync(m, now))
	case protocol.TileDelta:
		if n, ok := r.Mirror.ApplyDelta(m, now); ok {
			r.emit([]Notice{n})
		}
	case protocol.BalanceDelta:
		r.Mirror.ApplyBalance(m)
		r.logger().Info("balance updated", "balance", m.NewBalance)
	case protocol.ActionResultMsg:
		r.logger().Info("action result", "action_kind", m.ActionKind, "result_code", m.ResultCode, "applied", m.AppliedCount, "cost", m.TotalCost)
	case protocol.ActionFailedMsg:
		r.logger().Warn("action failed", "action_kind", m.ActionKind, "reason", m.Reason, "context", m.Context)
	default:
		r.logger().Debug("ignored inbound message", "type", fmt.Sprintf("%T", msg))
	}
}

func (r *Runner) emit(ns []Notice) {
	if r.OnNotice == nil {
		return
	}
	for _, n := range ns {
		r.OnNotice(n)
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) newTimer(d time.Duration) (<-chan time.Time, func() bool) {
	if r.NewTimer != nil {
		return r.NewTimer(d)
	}
	t := time.NewTimer(d)
	return t.C, t.Stop
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
