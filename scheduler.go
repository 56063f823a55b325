package kernel

import "math/bits"

// readyBucket is the FIFO of ready tasks at one priority level (§4.E).
type readyBucket struct {
	tasks []*taskControlBlock
}

func (b *readyBucket) pushBack(t *taskControlBlock) {
	b.tasks = append(b.tasks, t)
}

func (b *readyBucket) popFront() *taskControlBlock {
	if len(b.tasks) == 0 {
		return nil
	}
	t := b.tasks[0]
	b.tasks = b.tasks[1:]
	return t
}

func (b *readyBucket) remove(t *taskControlBlock) bool {
	for i, cur := range b.tasks {
		if cur == t {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (b *readyBucket) empty() bool { return len(b.tasks) == 0 }

// scheduler owns the ready-set bitmap and its per-priority FIFOs (§4.E).
// The bitmap-plus-FIFO-buckets layout and the trailing-zeros priority scan
// are the idiomatic Go expression of the classic RTOS "ready list" found
// in embedded kernels; math/bits.TrailingZeros32 finds the lowest set
// bit (the highest priority, since 0 is highest) in O(1), as a CTZ
// instruction would on the target core, without resorting to assembly.
type scheduler struct {
	numPriorities int
	buckets       []readyBucket
	readyMask     uint32
	idle          *taskControlBlock
	port          Port

	// lockDepth implements LockScheduler/UnlockScheduler (§4.E): while
	// non-zero, preemption is deferred (ready-set mutations still happen,
	// but pickNext keeps returning the current task) without masking
	// interrupts, so ISRs still run and can queue work.
	lockDepth int
	// switchPending records that a switch was deferred by a non-zero
	// lockDepth and must be applied as soon as UnlockScheduler reaches 0.
	switchPending bool
}

func newScheduler(numPriorities int, port Port) *scheduler {
	return &scheduler{
		numPriorities: numPriorities,
		buckets:       make([]readyBucket, numPriorities),
		port:          port,
	}
}

// markReady adds t to its priority's ready bucket and sets the bitmap bit.
// Caller holds the kernel critical section.
func (s *scheduler) markReady(t *taskControlBlock) {
	if t.inReadySet || t.suspended {
		return
	}
	t.inReadySet = true
	if t.stats != nil {
		t.stats.lastReadyAt = s.port.Now()
	}
	s.buckets[t.priority].pushBack(t)
	s.readyMask |= 1 << uint(t.priority)
}

// removeReady drops t from the ready set, e.g. because it is about to
// block or has been suspended/deleted.
func (s *scheduler) removeReady(t *taskControlBlock) {
	if !t.inReadySet {
		return
	}
	if s.buckets[t.priority].remove(t) {
		t.inReadySet = false
	}
	if s.buckets[t.priority].empty() {
		s.readyMask &^= 1 << uint(t.priority)
	}
}

// highestReadyPriority returns the numerically lowest occupied priority
// level (0 is highest per §3's convention).
func (s *scheduler) highestReadyPriority() (int, bool) {
	if s.readyMask == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(s.readyMask), true
}

// pickNext implements preemption-point selection (§4.E points 1-5): given
// the currently running task and whether it remains runnable (false when
// it has just blocked or terminated), choose the task that should run
// next. A still-runnable prev is re-enqueued at the back of its bucket
// before the pick, giving round-robin rotation among equal-priority ready
// tasks at every reschedule. Timeslices are not consumed: there is no
// quantum accounting, so an equal-priority peer runs only when prev
// yields, blocks or is otherwise rescheduled. If the scheduler is locked
// (lockDepth > 0), prev keeps running and the pick is deferred.
func (s *scheduler) pickNext(prev *taskControlBlock, prevRunnable bool) *taskControlBlock {
	if prevRunnable && prev != nil && prev != s.idle {
		s.markReady(prev)
	}
	if s.lockDepth > 0 {
		s.switchPending = true
		if prev != nil {
			return prev
		}
		return s.idle
	}
	p, ok := s.highestReadyPriority()
	if !ok {
		return s.idle
	}
	t := s.buckets[p].popFront()
	if s.buckets[p].empty() {
		s.readyMask &^= 1 << uint(p)
	}
	t.inReadySet = false
	return t
}

// lock increments the scheduler-lock depth.
func (s *scheduler) lock() { s.lockDepth++ }

// unlock decrements the scheduler-lock depth, reporting whether a switch
// was deferred while locked and should now be actioned.
func (s *scheduler) unlock() (shouldReschedule bool) {
	if s.lockDepth == 0 {
		return false
	}
	s.lockDepth--
	if s.lockDepth == 0 && s.switchPending {
		s.switchPending = false
		return true
	}
	return false
}
