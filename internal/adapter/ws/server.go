// Package ws is the map-room websocket transport. A connection subscribes to
// one map, receives its full state, then streams intents and receives deltas.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"harvesthorizon/internal/adapter/broadcast"
	"harvesthorizon/internal/app/action"
	"harvesthorizon/internal/app/mapview"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
	pingInterval     = 25 * time.Second
	maxMessageBytes  = 64 * 1024

	DefaultIntentRate  = 10
	DefaultIntentBurst = 20
)

type ActionExecutor interface {
	Execute(ctx context.Context, req action.Request) (action.Response, error)
}

type MapViewer interface {
	Execute(ctx context.Context, req mapview.Request) (mapview.Response, error)
}

type Server struct {
	Hub         *broadcast.Hub
	Actions     ActionExecutor
	MapView     MapViewer
	Gate        ports.OwnershipGate
	IntentRate  rate.Limit
	IntentBurst int
	Logger      *slog.Logger
	NewID       func() string

	upgrader websocket.Upgrader
}

func NewServer(s Server) *Server {
	if s.IntentRate <= 0 {
		s.IntentRate = DefaultIntentRate
	}
	if s.IntentBurst <= 0 {
		s.IntentBurst = DefaultIntentBurst
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.NewID == nil {
		s.NewID = uuid.NewString
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return &s
}

type session struct {
	connID  string
	ownerID string
	mapID   string
	limiter *rate.Limiter
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessageBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess, sub, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.writeLoop(ctx, conn, sub)
			cancel()
		}()

		s.readLoop(ctx, conn, sess)
		cancel()
		s.Hub.Unregister(sess.connID)
		<-done
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (session, *broadcast.Subscriber, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return session{}, nil, false
	}
	base, err := protocol.DecodeBase(raw)
	if err != nil || base.Type != protocol.TypeSubscribe {
		closeWith(conn, websocket.ClosePolicyViolation, "expected subscribe")
		return session{}, nil, false
	}
	if err := protocol.ValidateSubscribe(raw); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "invalid subscribe")
		return session{}, nil, false
	}
	var msg protocol.SubscribeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return session{}, nil, false
	}
	sess := session{
		connID:  s.NewID(),
		ownerID: strings.TrimSpace(msg.OwnerID),
		mapID:   strings.TrimSpace(msg.MapID),
		limiter: rate.NewLimiter(s.IntentRate, s.IntentBurst),
	}

	if s.Gate != nil {
		if err := s.Gate.Authorize(ctx, sess.ownerID, sess.mapID); err != nil {
			s.rejectSubscribe(conn, err)
			return session{}, nil, false
		}
	}

	sub := s.Hub.Register(sess.connID, sess.ownerID)
	err = s.Hub.JoinWithSnapshot(sess.mapID, sub, func() (any, error) {
		view, err := s.MapView.Execute(ctx, mapview.Request{MapID: sess.mapID, OwnerID: sess.ownerID})
		if err != nil {
			return nil, err
		}
		return view.Sync(), nil
	})
	if err != nil {
		s.Hub.Unregister(sess.connID)
		s.rejectSubscribe(conn, err)
		return session{}, nil, false
	}
	return sess, sub, true
}

func (s *Server) rejectSubscribe(conn *websocket.Conn, err error) {
	reason := action.FailureReason(err)
	_ = writeJSON(conn, protocol.NewActionFailed("", protocol.TypeSubscribe, reason, nil))
	closeWith(conn, websocket.ClosePolicyViolation, reason)
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-sub.Out():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess session) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			s.reply(ctx, sess, protocol.NewActionFailed("", "", protocol.ReasonBadRequest, nil))
			continue
		}
		switch base.Type {
		case protocol.TypeIntent:
			s.handleIntent(ctx, sess, raw)
		case protocol.TypeUnsubscribe:
			s.Hub.Leave(sess.mapID, sess.connID)
			closeWith(conn, websocket.CloseNormalClosure, "unsubscribed")
			return
		default:
			s.reply(ctx, sess, protocol.NewActionFailed("", "", protocol.ReasonBadRequest, map[string]any{"type": base.Type}))
		}
	}
}

func (s *Server) handleIntent(ctx context.Context, sess session, raw []byte) {
	var msg protocol.IntentMsg
	if err := protocol.ValidateIntent(raw); err != nil {
		_ = json.Unmarshal(raw, &msg)
		s.reply(ctx, sess, protocol.NewActionFailed(msg.RequestID, msg.ActionKind, protocol.ReasonBadRequest, map[string]any{"error": err.Error()}))
		return
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.reply(ctx, sess, protocol.NewActionFailed("", "", protocol.ReasonBadRequest, nil))
		return
	}
	if msg.MapID != "" && msg.MapID != sess.mapID {
		s.reply(ctx, sess, protocol.NewActionFailed(msg.RequestID, msg.ActionKind, protocol.ReasonNotSubscribed, nil))
		return
	}
	if !sess.limiter.Allow() {
		s.reply(ctx, sess, protocol.NewActionFailed(msg.RequestID, msg.ActionKind, protocol.ReasonRateLimited, nil))
		return
	}

	res, err := s.Actions.Execute(ctx, action.Request{
		OwnerID:   sess.ownerID,
		MapID:     sess.mapID,
		ConnID:    sess.connID,
		RequestID: msg.RequestID,
		Intent: farm.Intent{
			Kind:      farm.ActionKind(msg.ActionKind),
			Coords:    msg.Coords,
			CropType:  farm.CropType(msg.CropType),
			CropLevel: msg.CropLevel,
		},
	})
	if err != nil {
		s.reply(ctx, sess, protocol.NewActionFailed(msg.RequestID, msg.ActionKind, action.FailureReason(err), action.FailureContext(err)))
		return
	}
	s.reply(ctx, sess, protocol.ActionResultMsg{
		Type:         protocol.TypeActionResult,
		RequestID:    msg.RequestID,
		ActionKind:   string(res.ActionKind),
		ResultCode:   string(res.ResultCode),
		AppliedCount: res.AppliedCount,
		TotalCost:    res.TotalCost,
	})
}

// reply goes through the connection's queue so it stays ordered after the
// deltas the same batch produced.
func (s *Server) reply(ctx context.Context, sess session, msg any) {
	if err := s.Hub.SendTo(ctx, sess.connID, msg); err != nil {
		s.Logger.Warn("ws reply", "conn_id", sess.connID, "err", err)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}
