package growth

import (
	"container/heap"
	"time"

	"harvesthorizon/internal/domain/farm"
)

type timer struct {
	at    time.Time
	coord farm.Coord
	index int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		if h[i].coord.Y != h[j].coord.Y {
			return h[i].coord.Y < h[j].coord.Y
		}
		return h[i].coord.X < h[j].coord.X
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler holds at most one pending timer per coordinate, ordered by fire
// time. It is not safe for concurrent use; the Runner owns it.
type Scheduler struct {
	h       timerHeap
	byCoord map[farm.Coord]*timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{byCoord: map[farm.Coord]*timer{}}
}

// Schedule arms the timer for c, replacing any pending one.
func (s *Scheduler) Schedule(c farm.Coord, at time.Time) {
	if t, ok := s.byCoord[c]; ok {
		t.at = at
		heap.Fix(&s.h, t.index)
		return
	}
	t := &timer{at: at, coord: c}
	heap.Push(&s.h, t)
	s.byCoord[c] = t
}

// Cancel drops the pending timer for c. Unknown coordinates are a no-op.
func (s *Scheduler) Cancel(c farm.Coord) {
	t, ok := s.byCoord[c]
	if !ok {
		return
	}
	heap.Remove(&s.h, t.index)
	delete(s.byCoord, c)
}

func (s *Scheduler) Reset() {
	s.h = s.h[:0]
	clear(s.byCoord)
}

func (s *Scheduler) Pending(c farm.Coord) (time.Time, bool) {
	t, ok := s.byCoord[c]
	if !ok {
		return time.Time{}, false
	}
	return t.at, true
}

// Next reports the earliest pending fire time.
func (s *Scheduler) Next() (time.Time, farm.Coord, bool) {
	if len(s.h) == 0 {
		return time.Time{}, farm.Coord{}, false
	}
	return s.h[0].at, s.h[0].coord, true
}

// PopDue removes and returns the earliest timer if it is due by deadline.
func (s *Scheduler) PopDue(deadline time.Time) (farm.Coord, time.Time, bool) {
	if len(s.h) == 0 || s.h[0].at.After(deadline) {
		return farm.Coord{}, time.Time{}, false
	}
	t := heap.Pop(&s.h).(*timer)
	delete(s.byCoord, t.coord)
	return t.coord, t.at, true
}

func (s *Scheduler) Len() int {
	return len(s.h)
}
