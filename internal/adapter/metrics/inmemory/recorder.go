package inmemory

import (
	"sync"

	"harvesthorizon/internal/domain/farm"
)

type KindSnapshot struct {
	Success       uint64            `json:"success"`
	Noop          uint64            `json:"noop"`
	Partial       uint64            `json:"partial"`
	Rejected      uint64            `json:"rejected"`
	Inconsistency uint64            `json:"inconsistency"`
	ByReason      map[string]uint64 `json:"rejected_by_reason"`
}

type Snapshot struct {
	ActionTotal         uint64                  `json:"action_total"`
	ActionSuccess       uint64                  `json:"action_success"`
	ActionNoop          uint64                  `json:"action_noop"`
	ActionRejected      uint64                  `json:"action_rejected"`
	ActionInconsistency uint64                  `json:"action_inconsistency"`
	ByResultCode        map[string]uint64       `json:"by_result_code"`
	ByKind              map[string]KindSnapshot `json:"by_kind"`
}

type kindCounters struct {
	success       uint64
	noop          uint64
	partial       uint64
	rejected      uint64
	inconsistency uint64
	byReason      map[string]uint64
}

// Recorder counts action outcomes per kind. It implements ports.ActionMetrics.
type Recorder struct {
	mu       sync.Mutex
	byResult map[string]uint64
	byKind   map[farm.ActionKind]*kindCounters
}

func NewRecorder() *Recorder {
	return &Recorder{
		byResult: map[string]uint64{},
		byKind:   map[farm.ActionKind]*kindCounters{},
	}
}

func (r *Recorder) kind(k farm.ActionKind) *kindCounters {
	c, ok := r.byKind[k]
	if !ok {
		c = &kindCounters{byReason: map[string]uint64{}}
		r.byKind[k] = c
	}
	return c
}

// RecordSuccess counts a batch that completed; NO_ELIGIBLE_TILES is a noop,
// not a failure.
func (r *Recorder) RecordSuccess(kind farm.ActionKind, resultCode farm.ResultCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byResult[string(resultCode)]++
	c := r.kind(kind)
	switch resultCode {
	case farm.ResultNoEligibleTiles:
		c.noop++
	case farm.ResultPartial:
		c.partial++
		c.success++
	default:
		c.success++
	}
}

func (r *Recorder) RecordFailure(kind farm.ActionKind, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.kind(kind)
	c.rejected++
	c.byReason[reason]++
}

func (r *Recorder) RecordInconsistency(kind farm.ActionKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(kind).inconsistency++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ByResultCode: make(map[string]uint64, len(r.byResult)),
		ByKind:       make(map[string]KindSnapshot, len(r.byKind)),
	}
	for k, v := range r.byResult {
		out.ByResultCode[k] = v
	}
	for k, c := range r.byKind {
		ks := KindSnapshot{
			Success:       c.success,
			Noop:          c.noop,
			Partial:       c.partial,
			Rejected:      c.rejected,
			Inconsistency: c.inconsistency,
			ByReason:      make(map[string]uint64, len(c.byReason)),
		}
		for reason, n := range c.byReason {
			ks.ByReason[reason] = n
		}
		out.ByKind[string(k)] = ks
		out.ActionSuccess += c.success
		out.ActionNoop += c.noop
		out.ActionRejected += c.rejected
		out.ActionInconsistency += c.inconsistency
	}
	out.ActionTotal = out.ActionSuccess + out.ActionNoop + out.ActionRejected
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
