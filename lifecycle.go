package kernel

import "time"

// CreateTaskParams bundles the arguments to CreateTask (§4.F): Name,
// Priority, StackSize and Arg. It has no Flags field.
type CreateTaskParams struct {
	Name      string
	Priority  uint8
	StackSize int // bytes; 0 selects Config.MinStackBytes
	Arg       any
}

// CreateTask registers a new task and makes it Ready immediately (§4.F);
// there is no separate start step. Tasks created before StartScheduler
// are picked up by the first scheduling decision; once the scheduler is
// running, a new task that outranks the current one preempts it.
func (k *Kernel) CreateTask(fn TaskFunc, params CreateTaskParams) (TaskID, error) {
	if fn == nil {
		return 0, err(InvalidParam)
	}
	if int(params.Priority) >= k.cfg.NumPriorities {
		return 0, err(InvalidParam)
	}
	stack := params.StackSize
	if stack == 0 {
		stack = k.cfg.MinStackBytes
	}
	if stack < k.cfg.MinStackBytes {
		return 0, err(InvalidParam)
	}
	tcb, cerr := k.newTask(params.Name, fn, params.Arg, params.Priority, stack)
	if cerr != nil {
		return 0, cerr
	}
	k.cs.enter()
	tcb.state.Store(TaskReady)
	k.sched.markReady(tcb)
	shouldPreempt := k.started.Load() && k.higherThanCurrentLocked(tcb)
	k.cs.exit()
	k.logger.Debugf("kernel: task %q (id=%d, prio=%d) created", tcb.name, tcb.id, tcb.priority)
	if shouldPreempt {
		k.port.RequestContextSwitch()
	}
	return tcb.id, nil
}

// newTask allocates and registers a TCB, and starts its goroutine parked
// on the baton channel. It does not make the task ready; callers decide
// that (the idle task never becomes part of the ready set directly - it
// is scheduler.idle, picked only when the ready set is empty).
func (k *Kernel) newTask(name string, fn TaskFunc, arg any, priority uint8, stackSize int) (*taskControlBlock, error) {
	tcb := &taskControlBlock{
		name:         name,
		priority:     priority,
		basePriority: priority,
		timeslice:    k.cfg.DefaultTimeslice,
		sliceLeft:    k.cfg.DefaultTimeslice,
		stackSize:    stackSize,
		canaryOK:     true,
		guard:        newStackGuard(stackSize, k.cfg.EnableStackCheck),
		fn:           fn,
		arg:          arg,
		runCh:        make(chan struct{}, 1),
		doneCh:       make(chan struct{}),
		stats:        newTaskStats(),
		createdAt:    k.port.Now(),
	}
	tcb.state.Store(TaskInit)
	id, rerr := k.reg.Register(KindTask, name, tcb, tcb.createdAt)
	if rerr != nil {
		return nil, rerr
	}
	tcb.id = TaskID(id)
	go k.taskTrampoline(tcb)
	return tcb, nil
}

// taskTrampoline is every task goroutine's entry point: it waits for the
// first baton handoff, runs the task function, then tears the task down.
// This is the goroutine-per-task half of the "baton passing" model
// described in doc.go, grounded on the single-runnable-worker handoff
// pattern shown by the toy G/M/P scheduler in the example pack (only the
// goroutine holding the baton ever touches kernel-managed state).
func (k *Kernel) taskTrampoline(tcb *taskControlBlock) {
	<-tcb.runCh
	if tcb.state.Load() == TaskTerminated {
		close(tcb.doneCh)
		return
	}
	if tcb.fn != nil {
		tcb.fn(tcb.arg)
	}
	k.exitTask(tcb)
	close(tcb.doneCh)
}

// exitTask runs when a task function returns naturally, equivalent to
// the task calling DeleteTask on itself.
func (k *Kernel) exitTask(tcb *taskControlBlock) {
	k.cs.enter()
	tcb.state.Store(TaskTerminated)
	k.sched.removeReady(tcb)
	k.releaseHeldMutexesLocked(tcb)
	k.cs.exit()
	_ = k.reg.Unregister(KindTask, uint32(tcb.id))
	k.logger.Debugf("kernel: task %q (id=%d) exited", tcb.name, tcb.id)
	k.reschedule(true)
}

// DeleteTask terminates a task. Deleting a task other than the caller is
// immediate; a task may also delete itself, in which case this call does
// not return (control passes to the next scheduled task).
func (k *Kernel) DeleteTask(id TaskID) error {
	tcb, ok := k.taskByID(id)
	if !ok {
		return err(NotFound)
	}
	k.mu.Lock()
	self := k.current == tcb
	k.mu.Unlock()
	if self {
		k.exitTask(tcb)
		return nil
	}
	k.cs.enter()
	if tcb.state.Load() == TaskTerminated {
		k.cs.exit()
		return err(NotFound)
	}
	tcb.state.Store(TaskTerminated)
	k.sched.removeReady(tcb)
	if tcb.waitingOn != nil {
		k.cancelWaitLocked(tcb, wrapErr(Deleted, errTaskDeleted))
	}
	k.releaseHeldMutexesLocked(tcb)
	k.cs.exit()
	_ = k.reg.Unregister(KindTask, uint32(id))
	// Unblock the victim's goroutine so it can observe termination and
	// exit cleanly rather than leak; a victim that never ran finds its
	// state already Terminated and returns without calling tcb.fn.
	select {
	case tcb.runCh <- struct{}{}:
	default:
	}
	return nil
}

// SuspendTask removes a task from scheduling entirely until ResumeTask,
// regardless of whether it is currently Ready, Running, or Blocked on a
// primitive: a suspended, blocked task still occupies its wait list
// position (and can still be woken by a give/send, per §4.F), but will
// not be placed back in the ready set until it is also resumed.
// Suspending the caller itself triggers an immediate reschedule.
func (k *Kernel) SuspendTask(id TaskID) error {
	tcb, ok := k.taskByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if tcb.state.Load() == TaskTerminated {
		k.cs.exit()
		return err(NotFound)
	}
	if tcb.suspended {
		k.cs.exit()
		return err(Busy)
	}
	wasRunning := tcb.state.Load() == TaskRunning
	tcb.suspended = true
	k.sched.removeReady(tcb)
	k.cs.exit()
	if wasRunning {
		k.reschedule(true)
	}
	return nil
}

// ResumeTask clears a task's suspension, placing it back in the ready set
// only if it is not also waiting on some other blocking primitive, and
// preempting the caller if the resumed task now outranks it.
func (k *Kernel) ResumeTask(id TaskID) error {
	tcb, ok := k.taskByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if !tcb.suspended {
		k.cs.exit()
		return err(InvalidContext)
	}
	tcb.suspended = false
	shouldPreempt := false
	if tcb.state.Load() == TaskReady {
		k.sched.markReady(tcb)
		shouldPreempt = k.higherThanCurrentLocked(tcb)
	}
	k.cs.exit()
	if shouldPreempt {
		k.port.RequestContextSwitch()
	}
	return nil
}

// DelayTask blocks the calling task until at least d has elapsed. It must
// be called from the task's own goroutine.
func (k *Kernel) DelayTask(d time.Duration) error {
	if d <= 0 {
		k.TaskYield()
		return nil
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		return err(InvalidContext)
	}
	k.cs.enter()
	at := k.port.Now() + int64(d)
	w := &waiter{task: self, priority: self.priority, wakeCh: make(chan error, 1)}
	self.waitingOn = w
	self.state.Store(TaskBlocked)
	k.sched.removeReady(self)
	w.dl = k.clk.scheduleWakeup(w, at)
	k.cs.exit()

	k.reschedule(true)
	<-w.wakeCh

	if w.dl != nil {
		k.cs.enter()
		k.clk.cancel(w.dl)
		k.cs.exit()
	}
	return nil
}

// TaskYield voluntarily gives up the remainder of the caller's timeslice
// to any other ready task at the same priority (§4.E preemption point:
// voluntary yield).
func (k *Kernel) TaskYield() {
	k.reschedule(true)
}

// SetTaskPriority changes a task's base priority, applying priority
// inheritance re-derivation if the task currently holds any mutexes
// (§4.G.2's max-ceiling rule, decided in SPEC_FULL.md §13).
func (k *Kernel) SetTaskPriority(id TaskID, priority uint8) error {
	if int(priority) >= k.cfg.NumPriorities {
		return err(InvalidParam)
	}
	tcb, ok := k.taskByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	tcb.basePriority = priority
	k.recomputeEffectivePriorityLocked(tcb)
	shouldPreempt := k.higherThanCurrentLocked(tcb)
	k.cs.exit()
	if shouldPreempt {
		k.port.RequestContextSwitch()
	}
	return nil
}

// higherThanCurrentLocked reports whether tcb outranks the currently
// running task. Caller holds the critical section.
func (k *Kernel) higherThanCurrentLocked(tcb *taskControlBlock) bool {
	k.mu.Lock()
	cur := k.current
	k.mu.Unlock()
	if cur == nil {
		return true
	}
	return tcb.priority < cur.priority
}

// taskByID resolves a TaskID to its TCB via the registry.
func (k *Kernel) taskByID(id TaskID) (*taskControlBlock, bool) {
	obj, ok := k.reg.Get(KindTask, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*taskControlBlock), true
}

// idleTaskLoop is the lowest-priority task. It never blocks and is never
// placed in the ready set: the scheduler picks it (scheduler.idle)
// whenever the ready set is empty.
func idleTaskLoop(arg any) {
	k := arg.(*Kernel)
	for {
		if k.hooks.Idle != nil {
			k.hooks.Idle()
		}
		select {
		case <-k.stopped:
			return
		default:
		}
		k.TaskYield()
	}
}

var errTaskDeleted = newPlainError("task deleted while waiting")
