package ports

import (
	"context"

	"harvesthorizon/internal/protocol"
)

// Broadcaster fans out messages to the connections subscribed to a map room.
// Delivery is best effort: a slow connection drops messages instead of
// blocking the publisher.
type Broadcaster interface {
	Publish(ctx context.Context, mapID string, deltas []protocol.TileDelta) error
	SendTo(ctx context.Context, connID string, msg any) error
}
