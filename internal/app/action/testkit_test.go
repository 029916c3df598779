package action

import (
	"context"
	"fmt"
	"time"

	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubGrid struct {
	maps     map[string]farm.Map
	applyErr error
	// interfere mutates the stored tile right before an op is evaluated,
	// simulating a concurrent writer that won the race.
	interfere map[farm.Coord]func(farm.Tile) farm.Tile
	calls     int
}

func newStubGrid(m farm.Map) *stubGrid {
	return &stubGrid{maps: map[string]farm.Map{m.ID: m}}
}

func (g *stubGrid) GetMap(_ context.Context, mapID string) (farm.Map, error) {
	m, ok := g.maps[mapID]
	if !ok {
		return farm.Map{}, ports.ErrNotFound
	}
	out := m
	out.Tiles = make([]farm.Tile, len(m.Tiles))
	for i, t := range m.Tiles {
		out.Tiles[i] = t.Clone()
	}
	return out, nil
}

func (g *stubGrid) CreateMap(_ context.Context, m farm.Map) error {
	g.maps[m.ID] = m
	return nil
}

func (g *stubGrid) DeleteMap(_ context.Context, mapID string) error {
	delete(g.maps, mapID)
	return nil
}

func (g *stubGrid) ApplyTileOps(_ context.Context, mapID string, ops []farm.TileOp) (farm.TileBatchResult, error) {
	g.calls++
	if g.applyErr != nil {
		return farm.TileBatchResult{}, g.applyErr
	}
	m, ok := g.maps[mapID]
	if !ok {
		return farm.TileBatchResult{}, ports.ErrNotFound
	}
	res := farm.TileBatchResult{Results: make([]farm.TileOpResult, 0, len(ops))}
	for _, op := range ops {
		applied := false
		var version int64
		for i := range m.Tiles {
			if m.Tiles[i].Coord() != op.Coord {
				continue
			}
			if f, ok := g.interfere[op.Coord]; ok {
				m.Tiles[i] = f(m.Tiles[i])
			}
			if op.Expect.Matches(m.Tiles[i]) {
				next := op.Set.Apply(m.Tiles[i])
				next.Version = m.Tiles[i].Version + 1
				m.Tiles[i] = next
				version = next.Version
				applied = true
			}
		}
		if applied {
			res.AppliedCount++
		}
		res.Results = append(res.Results, farm.TileOpResult{Coord: op.Coord, Applied: applied, Version: version})
	}
	return res, nil
}

func (g *stubGrid) tile(mapID string, x, y int) farm.Tile {
	for _, t := range g.maps[mapID].Tiles {
		if t.X == x && t.Y == y {
			return t
		}
	}
	panic(fmt.Sprintf("tile %d,%d not found", x, y))
}

type stubLedger struct {
	balances map[string]int64
	debits   int
}

func (l *stubLedger) Open(_ context.Context, ownerID string, initial int64) error {
	if _, ok := l.balances[ownerID]; !ok {
		l.balances[ownerID] = initial
	}
	return nil
}

func (l *stubLedger) GetBalance(_ context.Context, ownerID string) (int64, error) {
	b, ok := l.balances[ownerID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return b, nil
}

func (l *stubLedger) Debit(_ context.Context, ownerID string, amount int64) (int64, error) {
	b, ok := l.balances[ownerID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	if amount > b {
		return b, ports.ErrInsufficientFunds
	}
	l.debits++
	l.balances[ownerID] = b - amount
	return b - amount, nil
}

func (l *stubLedger) Credit(_ context.Context, ownerID string, amount int64) (int64, error) {
	l.balances[ownerID] += amount
	return l.balances[ownerID], nil
}

type stubInventory struct {
	items     map[string]map[string]int
	creditErr error
	credits   []map[string]int
}

func newStubInventory() *stubInventory {
	return &stubInventory{items: map[string]map[string]int{}}
}

func (s *stubInventory) HasEnough(_ context.Context, ownerID, resource string, count int) (bool, error) {
	return s.items[ownerID][resource] >= count, nil
}

func (s *stubInventory) Deduct(_ context.Context, ownerID, resource string, count int) error {
	if s.items[ownerID][resource] < count {
		return ports.ErrInsufficientQuantity
	}
	s.items[ownerID][resource] -= count
	return nil
}

func (s *stubInventory) Credit(_ context.Context, ownerID string, items map[string]int) error {
	if s.creditErr != nil {
		return s.creditErr
	}
	if s.items[ownerID] == nil {
		s.items[ownerID] = map[string]int{}
	}
	for k, v := range items {
		s.items[ownerID][k] += v
	}
	s.credits = append(s.credits, items)
	return nil
}

func (s *stubInventory) List(_ context.Context, ownerID string) (map[string]int, error) {
	return s.items[ownerID], nil
}

type sentMessage struct {
	connID string
	msg    any
}

type stubBroadcaster struct {
	published [][]protocol.TileDelta
	sent      []sentMessage
}

func (b *stubBroadcaster) Publish(_ context.Context, _ string, deltas []protocol.TileDelta) error {
	b.published = append(b.published, deltas)
	return nil
}

func (b *stubBroadcaster) SendTo(_ context.Context, connID string, msg any) error {
	b.sent = append(b.sent, sentMessage{connID: connID, msg: msg})
	return nil
}

type stubOutcomes struct {
	records []ports.Outcome
}

func (s *stubOutcomes) Append(_ context.Context, o ports.Outcome) error {
	s.records = append(s.records, o)
	return nil
}

func (s *stubOutcomes) ListByMap(_ context.Context, _ string, _ int) ([]ports.Outcome, error) {
	return s.records, nil
}

type stubAlerts struct {
	alerts []ports.Alert
}

func (s *stubAlerts) Raise(_ context.Context, a ports.Alert) {
	s.alerts = append(s.alerts, a)
}

type stubActionMetrics struct {
	successCalls       int
	failureCalls       int
	inconsistencyCalls int
	lastResult         farm.ResultCode
	lastReason         string
}

func (m *stubActionMetrics) RecordSuccess(_ farm.ActionKind, resultCode farm.ResultCode) {
	m.successCalls++
	m.lastResult = resultCode
}

func (m *stubActionMetrics) RecordFailure(_ farm.ActionKind, reason string) {
	m.failureCalls++
	m.lastReason = reason
}

func (m *stubActionMetrics) RecordInconsistency(farm.ActionKind) {
	m.inconsistencyCalls++
}

type fixture struct {
	grid      *stubGrid
	ledger    *stubLedger
	inventory *stubInventory
	broadcast *stubBroadcaster
	outcomes  *stubOutcomes
	alerts    *stubAlerts
	metrics   *stubActionMetrics
	now       time.Time
}

func newFixture(tiles ...farm.Tile) *fixture {
	return &fixture{
		grid:      newStubGrid(farm.Map{ID: "m1", OwnerID: "o1", Nickname: "home", Width: 8, Height: 8, Tiles: tiles}),
		ledger:    &stubLedger{balances: map[string]int64{"o1": 1000}},
		inventory: newStubInventory(),
		broadcast: &stubBroadcaster{},
		outcomes:  &stubOutcomes{},
		alerts:    &stubAlerts{},
		metrics:   &stubActionMetrics{},
		now:       t0,
	}
}

func (f *fixture) useCase() UseCase {
	n := 0
	return UseCase{
		Grid:      f.grid,
		Ledger:    f.ledger,
		Inventory: f.inventory,
		Broadcast: f.broadcast,
		Outcomes:  f.outcomes,
		Alerts:    f.alerts,
		Metrics:   f.metrics,
		Rules:     farm.DefaultRules(),
		NewID: func() string {
			n++
			return fmt.Sprintf("out-%d", n)
		},
		Now: func() time.Time { return f.now },
	}
}

func (f *fixture) exec(kind farm.ActionKind, coords ...farm.Coord) (Response, error) {
	return f.useCase().Execute(context.Background(), Request{
		OwnerID: "o1",
		MapID:   "m1",
		ConnID:  "c1",
		Intent:  farm.Intent{Kind: kind, Coords: coords},
	})
}

func baseTile(x, y, obstruction int) farm.Tile {
	return farm.Tile{X: x, Y: y, ObstructionLevel: obstruction, IsBaseTile: true}
}

func leasableTile(x, y int) farm.Tile {
	return farm.Tile{X: x, Y: y, ObstructionLevel: farm.DefaultClearObstructionLevel, IsLeasable: true}
}

func cropTile(x, y int, ct farm.CropType, level int, plantedAt time.Time) farm.Tile {
	t := baseTile(x, y, farm.DefaultClearObstructionLevel)
	t.Crop = &farm.Crop{Type: ct, Level: level, PlantedAt: plantedAt}
	return t
}
