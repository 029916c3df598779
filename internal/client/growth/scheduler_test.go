package growth

import (
	"testing"
	"time"

	"harvesthorizon/internal/domain/farm"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestScheduler_PopsInFireOrder(t *testing.T) {
	s := NewScheduler()
	s.Schedule(farm.Coord{X: 2}, t0.Add(3*time.Second))
	s.Schedule(farm.Coord{X: 0}, t0.Add(1*time.Second))
	s.Schedule(farm.Coord{X: 1}, t0.Add(2*time.Second))

	var got []int
	for {
		c, _, ok := s.PopDue(t0.Add(time.Minute))
		if !ok {
			break
		}
		got = append(got, c.X)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("pop order = %v, want [0 1 2]", got)
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d, want 0", s.Len())
	}
}

func TestScheduler_RearmReplacesPendingTimer(t *testing.T) {
	s := NewScheduler()
	c := farm.Coord{X: 4, Y: 4}
	s.Schedule(c, t0.Add(time.Hour))
	s.Schedule(farm.Coord{X: 1}, t0.Add(30*time.Minute))
	s.Schedule(c, t0.Add(time.Minute))

	if s.Len() != 2 {
		t.Fatalf("len = %d, want one timer per coord", s.Len())
	}
	at, next, ok := s.Next()
	if !ok || next != c || !at.Equal(t0.Add(time.Minute)) {
		t.Fatalf("next = %v %v %v", at, next, ok)
	}
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	s := NewScheduler()
	c := farm.Coord{X: 1, Y: 1}
	s.Cancel(c)
	s.Schedule(c, t0)
	s.Cancel(c)
	s.Cancel(c)
	if _, ok := s.Pending(c); ok {
		t.Fatalf("timer should be cancelled")
	}
	if _, _, ok := s.Next(); ok {
		t.Fatalf("heap should be empty")
	}
}

func TestScheduler_PopDueLeavesFutureTimers(t *testing.T) {
	s := NewScheduler()
	s.Schedule(farm.Coord{X: 1}, t0.Add(time.Second))
	if _, _, ok := s.PopDue(t0); ok {
		t.Fatalf("timer popped before deadline")
	}
	if _, _, ok := s.PopDue(t0.Add(time.Second)); !ok {
		t.Fatalf("timer at deadline should pop")
	}
}
