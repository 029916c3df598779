// Package broadcast fans map deltas out to the connections subscribed to a
// map room. Delivery is at-most-once: a full outbound queue drops the message.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/protocol"
)

const DefaultQueueSize = 64

// Subscriber is one registered connection. The transport drains Out and
// writes every frame to the socket.
type Subscriber struct {
	ID      string
	OwnerID string

	mu      sync.Mutex
	out     chan []byte
	closed  bool
	dropped atomic.Int64
}

func (s *Subscriber) Out() <-chan []byte {
	return s.out
}

func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscriber) offer(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- b:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// room.mu is never acquired while holding Hub.mu. A room emptied under its
// own lock is marked closed and unlinked, so joiners that raced to it retry.
type room struct {
	mu      sync.Mutex
	members map[string]*Subscriber
	closed  bool
}

type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]*room
	conns     map[string]*Subscriber
	queueSize int
	logger    *slog.Logger
}

func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:     map[string]*room{},
		conns:     map[string]*Subscriber{},
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register adds a connection that can receive unicast messages. Re-registering
// an id replaces (and closes) the previous subscriber.
func (h *Hub) Register(connID, ownerID string) *Subscriber {
	sub := &Subscriber{ID: connID, OwnerID: ownerID, out: make(chan []byte, h.queueSize)}
	h.mu.Lock()
	prev := h.conns[connID]
	h.conns[connID] = sub
	h.mu.Unlock()
	if prev != nil {
		h.detach(prev)
		prev.close()
	}
	return sub
}

// Unregister removes the connection from every room and closes its queue.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	sub := h.conns[connID]
	delete(h.conns, connID)
	h.mu.Unlock()
	if sub == nil {
		return
	}
	h.detach(sub)
	sub.close()
}

func (h *Hub) lookup(mapID string) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[mapID]
}

// lockRoom returns the live room for mapID, creating it if needed, with its
// lock held.
func (h *Hub) lockRoom(mapID string) *room {
	for {
		h.mu.Lock()
		r, ok := h.rooms[mapID]
		if !ok {
			r = &room{members: map[string]*Subscriber{}}
			h.rooms[mapID] = r
		}
		h.mu.Unlock()

		r.mu.Lock()
		if !r.closed {
			return r
		}
		r.mu.Unlock()
	}
}

// releaseLocked unlinks r when it has no members. r.mu must be held.
func (h *Hub) releaseLocked(mapID string, r *room) {
	if len(r.members) > 0 || r.closed {
		return
	}
	r.closed = true
	h.mu.Lock()
	if h.rooms[mapID] == r {
		delete(h.rooms, mapID)
	}
	h.mu.Unlock()
}

func (h *Hub) Join(mapID string, sub *Subscriber) {
	r := h.lockRoom(mapID)
	r.members[sub.ID] = sub
	size := len(r.members)
	r.mu.Unlock()
	h.logger.Info("room join", "map_id", mapID, "conn_id", sub.ID, "owner_id", sub.OwnerID, "members", size)
}

// JoinWithSnapshot computes the first message for sub while holding the room
// lock, queues it, and only then adds sub to the room. A delta published
// concurrently is either contained in the snapshot or delivered after it.
// Other rooms and unicast sends are not blocked while the snapshot runs.
func (h *Hub) JoinWithSnapshot(mapID string, sub *Subscriber, snapshot func() (any, error)) error {
	r := h.lockRoom(mapID)
	err := func() error {
		msg, err := snapshot()
		if err != nil {
			return err
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		sub.offer(b)
		r.members[sub.ID] = sub
		return nil
	}()
	if err != nil {
		h.releaseLocked(mapID, r)
		r.mu.Unlock()
		return err
	}
	size := len(r.members)
	r.mu.Unlock()
	h.logger.Info("room join", "map_id", mapID, "conn_id", sub.ID, "owner_id", sub.OwnerID, "members", size)
	return nil
}

func (h *Hub) Leave(mapID, connID string) {
	r := h.lookup(mapID)
	if r == nil {
		return
	}
	if h.leave(mapID, r, connID, nil) {
		h.logger.Info("room leave", "map_id", mapID, "conn_id", connID)
	}
}

// leave removes connID from r. When only is set the member must be that
// exact subscriber.
func (h *Hub) leave(mapID string, r *room, connID string, only *Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.members[connID]
	if !ok || (only != nil && current != only) {
		return false
	}
	delete(r.members, connID)
	h.releaseLocked(mapID, r)
	return true
}

func (h *Hub) detach(sub *Subscriber) {
	h.mu.RLock()
	rooms := make(map[string]*room, len(h.rooms))
	for mapID, r := range h.rooms {
		rooms[mapID] = r
	}
	h.mu.RUnlock()
	for mapID, r := range rooms {
		if h.leave(mapID, r, sub.ID, sub) {
			h.logger.Info("room leave", "map_id", mapID, "conn_id", sub.ID)
		}
	}
}

// Members returns the number of connections in a room.
func (h *Hub) Members(mapID string) int {
	r := h.lookup(mapID)
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Publish sends each delta to every room member in order. The room lock is
// held for the whole batch so deltas of concurrent batches never interleave
// within one connection's stream.
func (h *Hub) Publish(_ context.Context, mapID string, deltas []protocol.TileDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	frames := make([][]byte, 0, len(deltas))
	for _, d := range deltas {
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode tile delta: %w", err)
		}
		frames = append(frames, b)
	}

	r := h.lookup(mapID)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.members {
		for _, f := range frames {
			if !sub.offer(f) {
				h.logger.Warn("broadcast dropped", "map_id", mapID, "conn_id", sub.ID, "dropped_total", sub.Dropped())
				break
			}
		}
	}
	return nil
}

func (h *Hub) SendTo(_ context.Context, connID string, msg any) error {
	h.mu.RLock()
	sub, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("conn %s: %w", connID, ports.ErrNotFound)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if !sub.offer(b) {
		h.logger.Warn("unicast dropped", "conn_id", connID, "dropped_total", sub.Dropped())
	}
	return nil
}
