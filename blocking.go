package kernel

import "time"

// Forever passed as a timeout means "block until woken, however long
// that takes" (§4.G's common blocking-primitive contract).
const Forever time.Duration = -1

// blockOn is the shared wait template used by every blocking primitive
// (semaphore take, mutex lock, queue send/receive, event-group wait): it
// parks the calling task on wq at its current priority, optionally
// arming a clock deadline, hands off the baton, and returns whatever
// result the waiter is eventually woken with. The caller must already
// hold the critical section and must not hold it across the call to
// this function; blockOn takes ownership of releasing it.
func (k *Kernel) blockOn(wq *waitQueue, timeout time.Duration, self *taskControlBlock) error {
	w := wq.add(self)
	self.waitingOn = w
	self.state.Store(TaskBlocked)
	k.sched.removeReady(self)
	if timeout != Forever {
		at := k.port.Now() + int64(timeout)
		w.dl = k.clk.scheduleWakeup(w, at)
	}
	k.cs.exit()

	k.reschedule(true)
	result := <-w.wakeCh

	if w.dl != nil {
		k.cs.enter()
		k.clk.cancel(w.dl)
		k.cs.exit()
	}
	return result
}

// wakeWaiterSuccess is called by a primitive (give/send/set-bits) when it
// hands ownership or data to the head waiter. Caller holds the critical
// section and has already popped w from its waitQueue.
func (k *Kernel) wakeWaiterSuccess(w *waiter) {
	w.task.waitingOn = nil
	w.task.state.Store(TaskReady)
	k.sched.markReady(w.task)
	w.wakeCh <- nil
}

// cancelWaitLocked forcibly wakes a blocked task with result, e.g.
// because it is being deleted or its wait queue is being reset. Caller
// holds the critical section.
func (k *Kernel) cancelWaitLocked(tcb *taskControlBlock, result error) {
	w := tcb.waitingOn
	if w == nil {
		return
	}
	if w.queue != nil {
		w.queue.remove(w)
	}
	if w.dl != nil {
		k.clk.cancel(w.dl)
	}
	tcb.waitingOn = nil
	select {
	case w.wakeCh <- result:
	default:
	}
}
