package game

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled callback
type TimerID uint64

// SessionOwner owns the session's own timers (score, spawn, collision, cooldowns).
// Pattern timers are owned by their pattern id, which starts at 1.
const SessionOwner uint64 = 0

type timer struct {
	id       TimerID
	owner    uint64
	due      time.Duration
	seq      uint64
	interval time.Duration
	fire     func()
	index    int
}

// timerHeap orders timers by due time, then by scheduling order
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler multiplexes every timer of a session onto one logical clock.
// Nothing runs until Advance is called, which lets tests feed synthetic time.
// Not safe for concurrent use; the Engine serializes access.
type Scheduler struct {
	now    time.Duration
	queue  timerHeap
	active map[TimerID]*timer
	seq    uint64
	nextID TimerID
}

// NewScheduler creates a scheduler at logical time zero
func NewScheduler() *Scheduler {
	return &Scheduler{active: make(map[TimerID]*timer)}
}

// Now returns the scheduler's logical time
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// At schedules fn to run once at absolute logical time due.
// A due time in the past runs on the next Advance.
func (s *Scheduler) At(due time.Duration, owner uint64, fn func()) TimerID {
	return s.push(due, owner, 0, fn)
}

// After schedules fn to run once, delay after now
func (s *Scheduler) After(delay time.Duration, owner uint64, fn func()) TimerID {
	return s.push(s.now+delay, owner, 0, fn)
}

// Every schedules fn every interval, first run one interval from now
func (s *Scheduler) Every(interval time.Duration, owner uint64, fn func()) TimerID {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return s.push(s.now+interval, owner, interval, fn)
}

func (s *Scheduler) push(due time.Duration, owner uint64, interval time.Duration, fn func()) TimerID {
	s.nextID++
	s.seq++
	t := &timer{
		id:       s.nextID,
		owner:    owner,
		due:      due,
		seq:      s.seq,
		interval: interval,
		fire:     fn,
	}
	s.active[t.id] = t
	heap.Push(&s.queue, t)
	return t.id
}

// Cancel stops a timer. Cancelling an unknown or finished timer is a no-op.
func (s *Scheduler) Cancel(id TimerID) {
	t, ok := s.active[id]
	if !ok {
		return
	}
	delete(s.active, id)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
}

// CancelOwner stops every timer belonging to owner and returns how many
func (s *Scheduler) CancelOwner(owner uint64) int {
	n := 0
	for id, t := range s.active {
		if t.owner == owner {
			s.Cancel(id)
			n++
		}
	}
	return n
}

// Pending returns the number of live timers owned by owner
func (s *Scheduler) Pending(owner uint64) int {
	n := 0
	for _, t := range s.active {
		if t.owner == owner {
			n++
		}
	}
	return n
}

// Len returns the number of live timers
func (s *Scheduler) Len() int {
	return len(s.active)
}

// Reset drops every timer. Logical time keeps running.
func (s *Scheduler) Reset() {
	s.queue = nil
	s.active = make(map[TimerID]*timer)
}

// Advance moves logical time forward to now, firing every due timer in
// (due, sequence) order. Callbacks observe Now() == their due time and may
// schedule or cancel timers, including ones due before now.
// Returns the number of callbacks fired.
func (s *Scheduler) Advance(now time.Duration) int {
	fired := 0
	for len(s.queue) > 0 {
		t := s.queue[0]
		if t.due > now {
			break
		}
		heap.Pop(&s.queue)
		if _, ok := s.active[t.id]; !ok {
			continue
		}
		if t.due > s.now {
			s.now = t.due
		}
		if t.interval == 0 {
			delete(s.active, t.id)
		}
		t.fire()
		fired++

		if t.interval > 0 {
			if _, ok := s.active[t.id]; ok {
				s.seq++
				t.due += t.interval
				t.seq = s.seq
				heap.Push(&s.queue, t)
			}
		}
	}
	if now > s.now {
		s.now = now
	}
	return fired
}
