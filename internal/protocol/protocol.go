package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeIntent       = "intent"
	TypeMapSync      = "map_sync"
	TypeTileDelta    = "tile_delta"
	TypeBalanceDelta = "balance_delta"
	TypeActionResult = "action_result"
	TypeActionFailed = "action_failed"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// Failure reasons carried by action_failed.
const (
	ReasonBadRequest           = "bad_request"
	ReasonMapNotFound          = "map_not_found"
	ReasonLedgerNotFound       = "ledger_not_found"
	ReasonInsufficientFunds    = "insufficient_funds"
	ReasonInsufficientResource = "insufficient_resource"
	ReasonGridWriteFailed      = "grid_write_failed"
	ReasonForbidden            = "forbidden"
	ReasonRateLimited          = "rate_limited"
	ReasonNotSubscribed        = "not_subscribed"
	ReasonInternal             = "internal_error"
)
