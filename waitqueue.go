package kernel

// waiter is one blocked task's linkage inside a waitQueue. It is
// intrusive in spirit (embedded in the blocking primitive's own
// bookkeeping) but implemented as a plain slice-backed list rather than
// raw pointers, since Go gives us safe, GC-tracked references for free
// and the teacher's own data structures (e.g. the registry ring) favour
// slices and maps over manual linked lists.
type waiter struct {
	task     *taskControlBlock
	priority uint8
	seq      uint64 // insertion sequence, for FIFO tie-break among equal priorities
	// wakeCh carries the wake result: nil on success, a *KernelError on
	// timeout/delete/reset. The waiting task's goroutine blocks receiving
	// from this channel.
	wakeCh chan error
	// queue links back to the list this waiter is parked on, so a
	// task-delete or reset can find and remove it without the caller
	// needing to know which primitive it is blocked on.
	queue *waitQueue
	// dl is the clock deadline armed for this wait, if any (nil for an
	// unbounded wait).
	dl *deadline

	// mask/waitAll/clearOnExit are used only by event-group waits, where
	// wake is condition-based rather than a simple FIFO pop.
	mask        uint32
	waitAll     bool
	clearOnExit bool
}

// waitQueue is a priority-ordered, FIFO-within-priority list of blocked
// tasks, as required by §4.C: "a blocking primitive's wait list is
// ordered by task priority, then FIFO among equal priorities."
type waitQueue struct {
	items []*waiter
	seq   uint64
	// owner identifies the blocking primitive this queue belongs to, used
	// only by mutex priority-inheritance chain walking to recover "what
	// is task T blocked on" as a *mutexState. Semaphores, queues and
	// event groups leave this nil.
	owner any
}

// add inserts w in priority order (lower numeric value = higher priority,
// per §3's convention of 0 being highest priority), preserving FIFO order
// among equal priorities.
func (q *waitQueue) add(task *taskControlBlock) *waiter {
	q.seq++
	w := &waiter{
		task:     task,
		priority: task.priority,
		seq:      q.seq,
		wakeCh:   make(chan error, 1),
		queue:    q,
	}
	i := 0
	for ; i < len(q.items); i++ {
		if q.items[i].priority > w.priority {
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = w
	return w
}

// remove deletes w from the queue if present, returning whether it was
// found. Used for timeout expiry, explicit delete/reset, event-group
// wake-ups and priority re-sorting.
func (q *waitQueue) remove(w *waiter) bool {
	for i, cur := range q.items {
		if cur == w {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// popHead removes and returns the highest-priority (then earliest) waiter,
// or nil if the queue is empty.
func (q *waitQueue) popHead() *waiter {
	if len(q.items) == 0 {
		return nil
	}
	w := q.items[0]
	q.items = q.items[1:]
	return w
}

// peekHead returns the highest-priority waiter without removing it.
func (q *waitQueue) peekHead() *waiter {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// snapshot returns the current waiters without removing them, for
// condition-based scans (event groups) that decide per-waiter whether to
// wake, rather than always popping the head.
func (q *waitQueue) snapshot() []*waiter {
	out := make([]*waiter, len(q.items))
	copy(out, q.items)
	return out
}

// len reports the number of blocked tasks.
func (q *waitQueue) len() int { return len(q.items) }

// empty reports whether no task is blocked.
func (q *waitQueue) empty() bool { return len(q.items) == 0 }

// wakeOne pops and wakes the head waiter with the given result, returning
// the woken task or nil if the queue was empty. Caller holds the kernel
// critical section.
func (q *waitQueue) wakeOne(result error) *taskControlBlock {
	w := q.popHead()
	if w == nil {
		return nil
	}
	w.wakeCh <- result
	return w.task
}

// wakeAll wakes every blocked task with the given result (used by event
// groups and reset operations), returning the woken tasks in wait order.
func (q *waitQueue) wakeAll(result error) []*taskControlBlock {
	woken := make([]*taskControlBlock, 0, len(q.items))
	items := q.items
	q.items = nil
	for _, w := range items {
		w.wakeCh <- result
		woken = append(woken, w.task)
	}
	return woken
}

// reprioritize re-sorts w's position after its task's effective priority
// changed (priority inheritance or set_priority while blocked), per
// §4.C's requirement that wait-list order track live priority.
func (q *waitQueue) reprioritize(w *waiter, newPriority uint8) {
	if !q.remove(w) {
		return
	}
	w.priority = newPriority
	i := 0
	for ; i < len(q.items); i++ {
		if q.items[i].priority > w.priority {
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = w
}
