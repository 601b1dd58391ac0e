// Package deadline implements the cooperative delayed-work queue composite
// behaviors use for their decision deadlines.
//
// The queue never runs anything on its own. The owner (the engine loop) calls
// RunUntil with the current time, so timer callbacks execute on the same
// goroutine as key events and are ordered FIFO with them: by wake time, then
// by the order in which they were armed.
package deadline

import (
	"container/heap"
	"fmt"
)

// CancelResult reports what Cancel managed to do.
type CancelResult int

const (
	// NotRunning means the timer was neither scheduled nor firing.
	NotRunning CancelResult = iota
	// Cancelled means a pending wake-up was removed; the callback will not run.
	Cancelled
	// TooLate means the callback is executing right now and cannot be stopped.
	// Owners must flag their instance so the callback ignores its result.
	TooLate
)

func (r CancelResult) String() string {
	switch r {
	case NotRunning:
		return "not-running"
	case Cancelled:
		return "cancelled"
	case TooLate:
		return "too-late"
	default:
		return fmt.Sprintf("CancelResult(%d)", int(r))
	}
}

// Func is a timer callback. at is the wake time the timer was armed for.
type Func func(at int64)

// Timer is a re-armable deadline bound to one Queue.
type Timer struct {
	q      *Queue
	fn     Func
	at     int64
	seq    uint64
	index  int
	firing bool
}

// Queue is a min-heap of armed timers. It is not safe for concurrent use.
type Queue struct {
	h   timerHeap
	seq uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// NewTimer creates an unarmed timer that calls fn when it fires.
func (q *Queue) NewTimer(fn Func) *Timer {
	return &Timer{q: q, fn: fn, index: -1}
}

// AfterFunc creates a timer and arms it for at.
func (q *Queue) AfterFunc(at int64, fn Func) *Timer {
	t := q.NewTimer(fn)
	t.Schedule(at)
	return t
}

// Schedule arms t for at, moving it if it is already pending. A timer may
// re-arm itself from inside its own callback.
func (t *Timer) Schedule(at int64) {
	q := t.q
	q.seq++
	t.at = at
	t.seq = q.seq
	if t.index >= 0 {
		heap.Fix(&q.h, t.index)
		return
	}
	heap.Push(&q.h, t)
}

// Cancel removes a pending wake-up.
func (t *Timer) Cancel() CancelResult {
	if t == nil {
		return NotRunning
	}
	if t.index >= 0 {
		heap.Remove(&t.q.h, t.index)
		return Cancelled
	}
	if t.firing {
		return TooLate
	}
	return NotRunning
}

// Pending reports whether the timer is armed.
func (t *Timer) Pending() bool { return t != nil && t.index >= 0 }

// Firing reports whether the callback is currently executing.
func (t *Timer) Firing() bool { return t != nil && t.firing }

// At returns the wake time of the last Schedule call.
func (t *Timer) At() int64 { return t.at }

// Next returns the earliest wake time, if any timer is armed.
func (q *Queue) Next() (int64, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].at, true
}

// Len returns the number of armed timers.
func (q *Queue) Len() int { return len(q.h) }

// RunUntil fires, in order, every timer whose wake time is <= now, including
// timers armed by callbacks during this call. It returns how many fired.
func (q *Queue) RunUntil(now int64) int {
	n := 0
	for len(q.h) > 0 && q.h[0].at <= now {
		t := heap.Pop(&q.h).(*Timer)
		t.firing = true
		t.fn(t.at)
		t.firing = false
		n++
	}
	return n
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
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
