package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kernel is the scheduler and object registry for one RTOS instance
// (§4.E, §6.1). The zero value is not usable; construct one with [New].
//
// There is deliberately no global kernel singleton: multiple independent
// Kernel values may coexist in one process (useful for host-side testing
// of several "boards" at once), mirroring the teacher's Loop type, which
// likewise avoids package-level state so multiple event loops can run
// side by side.
type Kernel struct {
	cfg    Config
	port   Port
	reg    *Registry
	clk    *clock
	cs     *critSection
	sched  *scheduler
	hooks  Hooks
	logger Logger
	diag   *diagLimiter

	mu      sync.Mutex // guards current; separate from cs
	current *taskControlBlock
	started atomic.Bool

	idleTask *taskControlBlock

	stopped chan struct{}
}

// New constructs a Kernel from the supplied options, but does not start
// the scheduler; call StartScheduler once the initial tasks have been
// created, per §4.F's "tasks created before StartScheduler begin in the
// Ready state".
func New(opts ...Option) (*Kernel, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg:     cfg,
		port:    cfg.port,
		reg:     newRegistry(cfg),
		logger:  cfg.logger,
		diag:    newDiagLimiter(),
		stopped: make(chan struct{}),
	}
	k.cs = newCritSection(k.port)
	k.clk = newClock(k.port)
	k.sched = newScheduler(cfg.NumPriorities, k.port)

	if hp, ok := k.port.(*hostPort); ok {
		hp.onSwitchRequested(k.onContextSwitchRequested)
		hp.onOneshotFired(k.onTimerFired)
	}

	idle, err := k.newTask("idle", idleTaskLoop, k, uint8(cfg.NumPriorities-1), cfg.MinStackBytes)
	if err != nil {
		return nil, err
	}
	k.idleTask = idle
	k.sched.idle = idle
	k.logger.Infof("kernel: initialized with %d priority levels, %d max tasks", cfg.NumPriorities, cfg.MaxTasks)
	return k, nil
}

// Now returns the port's monotonic clock reading in nanoseconds.
func (k *Kernel) Now() int64 { return k.port.Now() }

// SetHooks installs the optional lifecycle callbacks (§6.3). Must be
// called before StartScheduler.
func (k *Kernel) SetHooks(h Hooks) { k.hooks = h }

// EnterCritical masks interrupts and returns, for application code that
// needs to bracket a non-blocking operation against ISR and task
// preemption. Pairs with ExitCritical; nests correctly via [critSection].
func (k *Kernel) EnterCritical() { k.cs.enter() }

// ExitCritical restores interrupts masked by the matching EnterCritical.
func (k *Kernel) ExitCritical() { k.cs.exit() }

// LockScheduler defers preemption without masking interrupts, so ISRs
// keep running (§4.E). Pairs with UnlockScheduler.
func (k *Kernel) LockScheduler() {
	k.cs.enter()
	k.sched.lock()
	k.cs.exit()
}

// UnlockScheduler re-enables preemption, applying any switch that was
// deferred while locked.
func (k *Kernel) UnlockScheduler() {
	k.cs.enter()
	should := k.sched.unlock()
	k.cs.exit()
	if should {
		k.reschedule(false)
	}
}

// StartScheduler selects the first task to run and hands it the baton.
// It does not return until the kernel is stopped (Shutdown hook aside,
// there is normally no return from a real RTOS scheduler start either).
func (k *Kernel) StartScheduler() {
	if !k.started.CompareAndSwap(false, true) {
		return
	}
	if k.hooks.Startup != nil {
		k.hooks.Startup()
	}
	k.cs.enter()
	next := k.sched.pickNext(nil, false)
	k.mu.Lock()
	k.current = next
	k.mu.Unlock()
	next.state.Store(TaskRunning)
	k.cs.exit()
	next.runCh <- struct{}{}
	<-k.stopped
	if k.hooks.Shutdown != nil {
		k.hooks.Shutdown()
	}
}

// Shutdown stops the scheduler; StartScheduler's caller then returns.
// Task goroutines blocked on their own runCh are abandoned (as on real
// hardware, a reset does not unwind stacks).
func (k *Kernel) Shutdown() {
	select {
	case <-k.stopped:
	default:
		close(k.stopped)
	}
}

// reschedule performs one scheduling decision and, if the outgoing task
// changed, hands the baton to the incoming task. It assumes the
// critical section is NOT already held by the caller and takes it
// itself. blockCaller, when true, additionally parks the calling
// goroutine on its own runCh after handing off — used by every blocking
// primitive, where the caller IS the outgoing task. Non-task callers
// (the timer ISR simulation, or a task waking a different, higher
// priority task) must pass false.
func (k *Kernel) reschedule(blockCaller bool) {
	k.cs.enter()
	k.mu.Lock()
	prev := k.current
	k.mu.Unlock()

	if prev != nil {
		k.checkStackLocked(prev)
	}
	prevRunnable := prev != nil && prev.state.Load() == TaskRunning
	next := k.sched.pickNext(prev, prevRunnable)
	if prevRunnable && next != prev {
		prev.state.Store(TaskReady)
	}
	if next == prev {
		k.cs.exit()
		return
	}

	k.mu.Lock()
	k.current = next
	k.mu.Unlock()
	next.state.Store(TaskRunning)

	now := k.port.Now()
	if prev != nil && prev.stats != nil && prev.stats.lastDispatch != 0 {
		prev.stats.totalRunTime += now - prev.stats.lastDispatch
	}
	k.recordSwitchLatency(next, next.stats.lastReadyAt, now)
	next.stats.lastDispatch = now
	next.stats.runCount++

	var fromID, toID TaskID
	if prev != nil {
		fromID = prev.id
	}
	toID = next.id
	k.cs.exit()

	if k.hooks.Switch != nil {
		k.hooks.Switch(fromID, toID)
	}
	next.runCh <- struct{}{}
	if blockCaller && prev != nil {
		<-prev.runCh
	}
}

// onContextSwitchRequested is wired to the host port's PendSV-equivalent.
// It runs whenever kernel code calls RequestContextSwitch (task creation,
// priority changes, give/send wake-ups, resume), on whichever goroutine
// made that call; the timer-driven path goes through onTimerFired instead.
func (k *Kernel) onContextSwitchRequested() {
	k.reschedule(false)
}

// onTimerFired is the one-shot timer's fire callback (§4.D): it runs on
// a timer goroutine, never on a task's own stack, so it must not block
// the caller. It pops every due deadline, delivers task-wakeups and
// timer expiries, and preempts if a newly-ready task outranks whichever
// task is currently running.
func (k *Kernel) onTimerFired() {
	k.cs.enter()
	now := k.port.Now()
	due := k.clk.due(now)
	var toFire []*softwareTimer
	for _, d := range due {
		switch d.kind {
		case deadlineTaskWake:
			k.wakeWaiterLocked(d.waiter, wrapErr(Timeout, errWaitTimedOut))
		case deadlineTimerFire:
			toFire = append(toFire, d.timer)
		}
	}
	k.cs.exit()
	for _, t := range toFire {
		k.fireSoftwareTimer(t)
	}
	k.reschedule(false)
}

// wakeWaiterLocked covers the timeout path, where the clock alone knows w
// has expired: it unlinks w from the wait queue it is parked on (if any)
// and performs the ready-set transition. Success paths pop the waiter
// themselves and use wakeWaiterSuccess instead. Caller holds the
// critical section.
func (k *Kernel) wakeWaiterLocked(w *waiter, result error) {
	if w.task.waitingOn != w {
		return // already woken by the primitive itself; deadline stale
	}
	if w.queue != nil {
		w.queue.remove(w)
	}
	w.task.waitingOn = nil
	w.task.state.Store(TaskReady)
	k.sched.markReady(w.task)
	select {
	case w.wakeCh <- result:
	default:
	}
}

var errWaitTimedOut = newPlainError("wait timed out")
