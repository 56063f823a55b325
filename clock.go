package kernel

import (
	"container/heap"
	"time"
)

// deadlineKind distinguishes the two sources of timed wakeups that share
// the clock's single deadline queue: a task's own delay/timeout, and a
// software timer's expiry.
type deadlineKind uint8

const (
	deadlineTaskWake deadlineKind = iota
	deadlineTimerFire
)

// deadline is one entry in the clock's min-heap, grounded on the
// teacher's timerHeap in eventloop/loop.go (a container/heap min-heap of
// {when time.Time; task Task} tuples, there driven by epoll_wait's
// timeout argument). Here the heap's earliest entry instead drives the
// single hardware one-shot timer behind Port.SetOneshot, which is what
// makes the clock tickless: no periodic tick interrupt fires when
// nothing is due.
type deadline struct {
	at     int64 // absolute nanoseconds, Port.Now() domain
	seq    uint64
	kind   deadlineKind
	waiter *waiter          // set when kind == deadlineTaskWake
	timer  *softwareTimer   // set when kind == deadlineTimerFire
	index  int              // heap.Interface bookkeeping
}

// deadlineHeap is a min-heap of deadline ordered by at, then seq (FIFO
// tie-break for equal deadlines, matching §4.D's "same-deadline events
// fire in the order they were scheduled").
type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }
func (h deadlineHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *deadlineHeap) Push(x any) {
	d := x.(*deadline)
	d.index = len(*h)
	*h = append(*h, d)
}
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[:n-1]
	return d
}

// clock owns the tickless deadline queue (§4.D). All methods assume the
// caller already holds the kernel critical section.
type clock struct {
	port    Port
	heap    deadlineHeap
	seq     uint64
	armedAt int64
	hasArm  bool
}

func newClock(port Port) *clock {
	return &clock{port: port}
}

// scheduleWakeup arms a deadline for a blocked task's timeout and returns
// the heap entry so it can later be cancelled if the task wakes for
// another reason first.
func (c *clock) scheduleWakeup(w *waiter, at int64) *deadline {
	c.seq++
	d := &deadline{at: at, seq: c.seq, kind: deadlineTaskWake, waiter: w}
	heap.Push(&c.heap, d)
	c.rearm()
	return d
}

// scheduleTimer arms a deadline for a software timer's next expiry.
func (c *clock) scheduleTimer(t *softwareTimer, at int64) *deadline {
	c.seq++
	d := &deadline{at: at, seq: c.seq, kind: deadlineTimerFire, timer: t}
	heap.Push(&c.heap, d)
	c.rearm()
	return d
}

// cancel removes a previously scheduled deadline, e.g. because the task
// it belongs to was woken by a give/send before its timeout elapsed.
func (c *clock) cancel(d *deadline) {
	if d.index < 0 || d.index >= len(c.heap) || c.heap[d.index] != d {
		return
	}
	heap.Remove(&c.heap, d.index)
	c.rearm()
}

// due pops and returns every deadline with at <= now, in fire order.
// Called from the one-shot timer's fire callback, Kernel.onTimerFired.
func (c *clock) due(now int64) []*deadline {
	var fired []*deadline
	for len(c.heap) > 0 && c.heap[0].at <= now {
		fired = append(fired, heap.Pop(&c.heap).(*deadline))
	}
	c.rearm()
	return fired
}

// nextDeadline reports the earliest armed deadline, if any.
func (c *clock) nextDeadline() (int64, bool) {
	if len(c.heap) == 0 {
		return 0, false
	}
	return c.heap[0].at, true
}

// rearm re-programs the single hardware one-shot timer to the earliest
// remaining deadline, or cancels it if the queue is empty. This is the
// "single hardware one-shot timer" policy required by §4.D: the port is
// never asked to track more than one pending expiry at a time.
func (c *clock) rearm() {
	at, ok := c.nextDeadline()
	if !ok {
		if c.hasArm {
			c.port.CancelOneshot()
			c.hasArm = false
		}
		return
	}
	if c.hasArm && c.armedAt == at {
		return
	}
	now := c.port.Now()
	delay := at - now
	if delay < 0 {
		delay = 0
	}
	c.port.SetOneshot(time.Duration(delay))
	c.armedAt = at
	c.hasArm = true
}
