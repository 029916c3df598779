package growth

import (
	"sort"
	"time"

	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

// CropState is the locally derived growth view of one planted tile. Only
// Type, Level and PlantedAt come from the server; Stage and NextStageAt are
// recomputed with the shared rules.
type CropState struct {
	Coord       farm.Coord
	Type        farm.CropType
	Level       int
	PlantedAt   time.Time
	Stage       int
	NextStageAt time.Time
}

func (c CropState) Final() bool {
	return c.NextStageAt.IsZero()
}

type NoticeKind string

const (
	// NoticeStageChanged is a locally predicted stage advance.
	NoticeStageChanged NoticeKind = "stage_changed"
	// NoticeReconciled is an authoritative update that replaced the local
	// prediction for a tile.
	NoticeReconciled NoticeKind = "reconciled"
	NoticeCropRemoved NoticeKind = "crop_removed"
)

type Notice struct {
	Kind      NoticeKind
	Coord     farm.Coord
	CropType  farm.CropType
	PrevStage int
	Stage     int
	Final     bool
	At        time.Time
}

// Mirror is the client-side copy of one map. Authoritative syncs and deltas
// always overwrite local predictions.
type Mirror struct {
	rules     farm.Rules
	tolerance time.Duration
	sched     *Scheduler

	mapID   string
	balance int64
	tiles   map[farm.Coord]farm.Tile
	crops   map[farm.Coord]*CropState
}

func NewMirror(rules farm.Rules) *Mirror {
	if len(rules.Tuning.Crops) == 0 {
		rules = farm.DefaultRules()
	}
	tol := rules.Tuning.EarlyFireTolerance
	if tol <= 0 {
		tol = farm.DefaultEarlyFireTolerance
	}
	return &Mirror{
		rules:     rules,
		tolerance: tol,
		sched:     NewScheduler(),
		tiles:     map[farm.Coord]farm.Tile{},
		crops:     map[farm.Coord]*CropState{},
	}
}

func (m *Mirror) MapID() string  { return m.mapID }
func (m *Mirror) Balance() int64 { return m.balance }
func (m *Mirror) Tracked() int   { return len(m.crops) }

func (m *Mirror) Tile(c farm.Coord) (farm.Tile, bool) {
	t, ok := m.tiles[c]
	if !ok {
		return farm.Tile{}, false
	}
	return t.Clone(), true
}

func (m *Mirror) Crop(c farm.Coord) (CropState, bool) {
	st, ok := m.crops[c]
	if !ok {
		return CropState{}, false
	}
	return *st, true
}

// ApplySync replaces the whole mirror with a full map snapshot.
func (m *Mirror) ApplySync(msg protocol.MapSyncMsg, now time.Time) []Notice {
	prev := m.crops
	m.sched.Reset()
	m.mapID = msg.MapID
	m.balance = msg.Balance
	m.tiles = make(map[farm.Coord]farm.Tile, len(msg.Tiles))
	m.crops = map[farm.Coord]*CropState{}

	var notices []Notice
	for _, t := range msg.Tiles {
		m.tiles[t.Coord()] = t.Clone()
		if !t.HasCrop() {
			if old, ok := prev[t.Coord()]; ok {
				notices = append(notices, Notice{Kind: NoticeCropRemoved, Coord: t.Coord(), CropType: old.Type, PrevStage: old.Stage, At: now})
			}
			continue
		}
		if n, ok := m.track(t.Coord(), *t.Crop, prev[t.Coord()], now); ok {
			notices = append(notices, n)
		}
	}
	for c, old := range prev {
		if _, ok := m.tiles[c]; !ok {
			notices = append(notices, Notice{Kind: NoticeCropRemoved, Coord: c, CropType: old.Type, PrevStage: old.Stage, At: now})
		}
	}
	sortNotices(notices)
	return notices
}

// ApplyDelta merges one authoritative tile delta. Deltas for another map
// are ignored.
func (m *Mirror) ApplyDelta(d protocol.TileDelta, now time.Time) (Notice, bool) {
	if m.mapID != "" && d.MapID != "" && d.MapID != m.mapID {
		return Notice{}, false
	}
	c := d.Coord()
	tile, ok := m.tiles[c]
	if !ok {
		tile = farm.Tile{X: c.X, Y: c.Y}
	}
	// Batches publish in arrival order, not write order; an older write can
	// reach the room after a newer one.
	if !d.Supersedes(tile.Version) {
		return Notice{}, false
	}
	next := d.Fields.Apply(tile)
	if d.Version != 0 {
		next.Version = d.Version
	}
	m.tiles[c] = next

	if !d.Fields.TouchesCrop() {
		return Notice{}, false
	}
	if d.Fields.Crop != nil {
		return m.track(c, *d.Fields.Crop, m.crops[c], now)
	}
	return m.untrack(c, now)
}

func (m *Mirror) ApplyBalance(b protocol.BalanceDelta) {
	m.balance = b.NewBalance
}

// NextWake is the instant the earliest pending timer targets.
func (m *Mirror) NextWake() (time.Time, bool) {
	at, _, ok := m.sched.Next()
	return at, ok
}

// Fire advances every crop whose timer is due at now. A timer is due once now
// is within the early-fire tolerance of its target; anything earlier stays
// armed so the caller re-arms for the remaining delta.
func (m *Mirror) Fire(now time.Time) []Notice {
	var notices []Notice
	for {
		c, _, ok := m.sched.PopDue(now.Add(m.tolerance))
		if !ok {
			return notices
		}
		st, ok := m.crops[c]
		if !ok {
			continue
		}
		prev := st.Stage
		st.Stage++
		if final := m.rules.FinalStage(st.Type); st.Stage > final {
			st.Stage = final
		}
		m.arm(st)
		notices = append(notices, Notice{
			Kind:      NoticeStageChanged,
			Coord:     c,
			CropType:  st.Type,
			PrevStage: prev,
			Stage:     st.Stage,
			Final:     st.Final(),
			At:        now,
		})
	}
}

// Cancel stops tracking the crop at c. Unknown coordinates are a no-op.
func (m *Mirror) Cancel(c farm.Coord) {
	m.sched.Cancel(c)
	delete(m.crops, c)
}

func (m *Mirror) track(c farm.Coord, crop farm.Crop, prev *CropState, now time.Time) (Notice, bool) {
	st := &CropState{
		Coord:     c,
		Type:      crop.Type,
		Level:     crop.Level,
		PlantedAt: crop.PlantedAt,
		Stage:     m.rules.StageForElapsed(crop.Type, crop.Level, now.Sub(crop.PlantedAt)),
	}
	m.crops[c] = st
	m.arm(st)

	n := Notice{Kind: NoticeReconciled, Coord: c, CropType: st.Type, Stage: st.Stage, Final: st.Final(), At: now}
	if prev != nil {
		n.PrevStage = prev.Stage
		if prev.Type == st.Type && prev.Stage == st.Stage && prev.PlantedAt.Equal(st.PlantedAt) {
			return Notice{}, false
		}
	}
	return n, true
}

func (m *Mirror) untrack(c farm.Coord, now time.Time) (Notice, bool) {
	st, ok := m.crops[c]
	m.Cancel(c)
	if !ok {
		return Notice{}, false
	}
	return Notice{Kind: NoticeCropRemoved, Coord: c, CropType: st.Type, PrevStage: st.Stage, At: now}, true
}

func (m *Mirror) arm(st *CropState) {
	next, ok := m.rules.NextStageTimestamp(st.Type, st.Level, st.PlantedAt, st.Stage)
	if !ok {
		st.NextStageAt = time.Time{}
		m.sched.Cancel(st.Coord)
		return
	}
	st.NextStageAt = next
	m.sched.Schedule(st.Coord, next)
}

func sortNotices(ns []Notice) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Coord.Y != ns[j].Coord.Y {
			return ns[i].Coord.Y < ns[j].Coord.Y
		}
		return ns[i].Coord.X < ns[j].Coord.X
	})
}
