package ports

import "harvesthorizon/internal/domain/farm"

type ActionMetrics interface {
	RecordSuccess(kind farm.ActionKind, resultCode farm.ResultCode)
	RecordFailure(kind farm.ActionKind, reason string)
	RecordInconsistency(kind farm.ActionKind)
}
