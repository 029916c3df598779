package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"harvesthorizon/internal/protocol"
)

const writeWait = 5 * time.Second

// Client is one subscription to a map room. Decoded server messages are
// delivered on Inbound() in arrival order.
type Client struct {
	conn    *websocket.Conn
	inbound chan any
	logger  *slog.Logger

	writeMu sync.Mutex
}

type Options struct {
	URL     string
	MapID   string
	OwnerID string
	Header  http.Header
	Buffer  int
	Logger  *slog.Logger
}

// Dial connects and sends the subscribe frame. The first inbound message
// is the map_sync snapshot or an action_failed rejection.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" || opts.MapID == "" || opts.OwnerID == "" {
		return nil, errors.New("wsclient: url, map id and owner id are required")
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	buf := opts.Buffer
	if buf <= 0 {
		buf = 64
	}
	c := &Client{conn: conn, inbound: make(chan any, buf), logger: opts.Logger}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, MapID: opts.MapID, OwnerID: opts.OwnerID}
	if err := c.writeJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return c, nil
}

func (c *Client) Inbound() <-chan any {
	return c.inbound
}

// ReadLoop decodes frames until the socket closes, then closes Inbound.
func (c *Client) ReadLoop(ctx context.Context) error {
	defer close(c.inbound)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		msg, err := Decode(raw)
		if err != nil {
			c.logger.Warn("decode server message", "err", err)
			continue
		}
		if msg == nil {
			continue
		}
		select {
		case c.inbound <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Decode maps a server frame to its protocol struct. Unknown types decode to
// nil without error.
func Decode(raw []byte) (any, error) {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return nil, err
	}
	switch base.Type {
	case protocol.TypeMapSync:
		return decodeAs[protocol.MapSyncMsg](base.Type, raw)
	case protocol.TypeTileDelta:
		return decodeAs[protocol.TileDelta](base.Type, raw)
	case protocol.TypeBalanceDelta:
		return decodeAs[protocol.BalanceDelta](base.Type, raw)
	case protocol.TypeActionResult:
		return decodeAs[protocol.ActionResultMsg](base.Type, raw)
	case protocol.TypeActionFailed:
		return decodeAs[protocol.ActionFailedMsg](base.Type, raw)
	default:
		return nil, nil
	}
}

func decodeAs[T any](typ string, raw []byte) (any, error) {
	var m T
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return m, nil
}

// SendIntent writes one action intent for the subscribed map.
func (c *Client) SendIntent(in protocol.IntentMsg) error {
	in.Type = protocol.TypeIntent
	return c.writeJSON(in)
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
