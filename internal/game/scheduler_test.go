package game

import (
	"testing"
	"time"
)

func TestSchedulerRunsInDueThenInsertionOrder(t *testing.T) {
	s := NewScheduler()
	var order []string

	s.At(20*time.Millisecond, 1, func() { order = append(order, "b") })
	s.At(10*time.Millisecond, 2, func() { order = append(order, "a") })
	s.At(20*time.Millisecond, 3, func() { order = append(order, "c") })

	if n := s.Advance(15 * time.Millisecond); n != 1 {
		t.Fatalf("fired %d, want 1", n)
	}
	s.Advance(20 * time.Millisecond)

	want := "abc"
	got := ""
	for _, o := range order {
		got += o
	}
	if got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestSchedulerNowDuringCallback(t *testing.T) {
	s := NewScheduler()
	var seen time.Duration
	s.At(30*time.Millisecond, 1, func() { seen = s.Now() })
	s.Advance(time.Second)
	if seen != 30*time.Millisecond {
		t.Errorf("Now in callback = %v, want 30ms", seen)
	}
	if s.Now() != time.Second {
		t.Errorf("Now after Advance = %v, want 1s", s.Now())
	}
}

func TestSchedulerEvery(t *testing.T) {
	s := NewScheduler()
	count := 0
	s.Every(50*time.Millisecond, SessionOwner, func() { count++ })

	s.Advance(49 * time.Millisecond)
	if count != 0 {
		t.Fatalf("fired early: %d", count)
	}
	s.Advance(time.Second)
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	id := s.After(10*time.Millisecond, 1, func() { fired = true })
	s.Cancel(id)
	s.Cancel(id)
	s.Advance(time.Second)
	if fired {
		t.Error("cancelled timer fired")
	}

	count := 0
	var every TimerID
	every = s.Every(10*time.Millisecond, 1, func() {
		count++
		if count == 3 {
			s.Cancel(every)
		}
	})
	s.Advance(2 * time.Second)
	if count != 3 {
		t.Errorf("self-cancelling interval ran %d times, want 3", count)
	}
}

func TestSchedulerCancelOwnerAndReset(t *testing.T) {
	s := NewScheduler()
	fired := map[uint64]int{}
	for owner := uint64(1); owner <= 3; owner++ {
		o := owner
		s.After(time.Millisecond, o, func() { fired[o]++ })
		s.After(2*time.Millisecond, o, func() { fired[o]++ })
	}
	if n := s.CancelOwner(2); n != 2 {
		t.Errorf("CancelOwner = %d, want 2", n)
	}
	if s.Pending(1) != 2 || s.Pending(2) != 0 {
		t.Errorf("pending: owner1=%d owner2=%d", s.Pending(1), s.Pending(2))
	}
	s.Advance(10 * time.Millisecond)
	if fired[2] != 0 || fired[1] != 2 || fired[3] != 2 {
		t.Errorf("fired = %v", fired)
	}

	s.After(time.Millisecond, 1, func() { fired[1]++ })
	s.Reset()
	s.Advance(time.Second)
	if fired[1] != 2 || s.Len() != 0 {
		t.Error("Reset left a live timer")
	}
}

func TestSchedulerCallbackSchedulesPastDue(t *testing.T) {
	s := NewScheduler()
	var order []int
	s.At(10*time.Millisecond, 1, func() {
		order = append(order, 1)
		s.At(5*time.Millisecond, 1, func() { order = append(order, 2) })
	})
	s.At(20*time.Millisecond, 1, func() { order = append(order, 3) })
	s.Advance(time.Second)
	if len(order) != 3 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestSchedulerResetInsideCallback(t *testing.T) {
	s := NewScheduler()
	later := false
	s.Every(10*time.Millisecond, SessionOwner, func() { s.Reset() })
	s.After(50*time.Millisecond, 1, func() { later = true })
	s.Advance(time.Second)
	if later || s.Len() != 0 {
		t.Error("timers survived a Reset issued from a callback")
	}
}
