// Package sched provides a discrete-event scheduler driven by a virtual clock,
// so that timer-driven behaviour can be advanced deterministically.
package sched

import (
	"container/heap"
	"time"
)

// Kind distinguishes the events a key can own.
type Kind int

const (
	KindTick Kind = iota
	KindDeadline
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindDeadline:
		return "deadline"
	default:
		return "unknown"
	}
}

// Event is a scheduled (fire-time, key) pair.
type Event struct {
	At   time.Duration
	Key  string
	Kind Kind

	seq   uint64
	index int
}

// Scheduler is a min-heap of events ordered by fire time, ties broken by
// scheduling order. It is not safe for concurrent use.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue eventQueue
}

// New creates a scheduler with its clock at zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Schedule queues an event at the absolute virtual time at. Times in the
// past fire on the next Advance.
func (s *Scheduler) Schedule(at time.Duration, key string, kind Kind) {
	s.seq++
	heap.Push(&s.queue, &Event{At: at, Key: key, Kind: kind, seq: s.seq})
}

// After queues an event d after the current virtual time.
func (s *Scheduler) After(d time.Duration, key string, kind Kind) {
	s.Schedule(s.now+d, key, kind)
}

// Cancel drops every pending event for key and returns how many were dropped.
func (s *Scheduler) Cancel(key string) int {
	kept := s.queue[:0]
	dropped := 0
	for _, ev := range s.queue {
		if ev.Key == key {
			dropped++
			continue
		}
		kept = append(kept, ev)
	}
	if dropped == 0 {
		return 0
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
	for i, ev := range s.queue {
		ev.index = i
	}
	heap.Init(&s.queue)
	return dropped
}

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// PendingFor returns the number of queued events for key.
func (s *Scheduler) PendingFor(key string) int {
	n := 0
	for _, ev := range s.queue {
		if ev.Key == key {
			n++
		}
	}
	return n
}

// NextAt returns the fire time of the earliest pending event.
func (s *Scheduler) NextAt() (time.Duration, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].At, true
}

// Advance moves the clock forward by d, calling fire for every event due
// within the window in order. The clock reads the event's fire time while
// fire runs, so events scheduled from fire are relative to it and fire in
// the same Advance if they fall inside the window.
func (s *Scheduler) Advance(d time.Duration, fire func(Event)) int {
	if d < 0 {
		d = 0
	}
	target := s.now + d
	fired := 0
	for len(s.queue) > 0 && s.queue[0].At <= target {
		ev := heap.Pop(&s.queue).(*Event)
		if ev.At > s.now {
			s.now = ev.At
		}
		fired++
		if fire != nil {
			fire(*ev)
		}
	}
	s.now = target
	return fired
}

type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].At == q[j].At {
		return q[i].seq < q[j].seq
	}
	return q[i].At < q[j].At
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*Event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
