package kernel

import "time"

// TaskID is a registry handle identifying a task (§3).
type TaskID uint32

// TaskFunc is the entry point a task runs. It receives an arbitrary
// argument supplied at creation and must return only if the task is
// meant to self-terminate; returning is equivalent to calling
// Kernel.DeleteTask(self).
type TaskFunc func(arg any)

// taskStats accumulates per-task statistics (§6.4): dispatch count,
// accumulated run time, and a P² streaming-quantile estimator adapted
// from the teacher's psquare.go (eventloop/psquare.go), which the teacher
// uses for request-latency percentiles and this kernel reuses for the
// latency from a task becoming Ready to its dispatch.
type taskStats struct {
	runCount      uint64
	totalRunTime  int64 // nanoseconds accumulated across all dispatches
	lastDispatch  int64 // Port.Now() at last dispatch, for runtime accounting
	lastReadyAt   int64 // Port.Now() at the most recent Ready transition
	switchLatency *pSquare
}

func newTaskStats() *taskStats {
	return &taskStats{
		switchLatency: newPSquare(0.99),
	}
}

// taskControlBlock is the kernel's internal TCB (§3). The public surface
// only ever hands out a TaskID; the TCB itself is never exposed, mirroring
// the teacher's registry pattern of storing live objects behind opaque
// handles.
type taskControlBlock struct {
	id   TaskID
	name string

	// Scheduling fields.
	priority    uint8 // current effective priority (may be boosted by inheritance)
	basePriority uint8 // priority as configured by create/set_priority
	state       atomicTaskState
	// suspended is orthogonal to state: SuspendTask sets it without
	// disturbing whatever state the task was actually in (Ready, Running,
	// or Blocked on a primitive), so a give/send that completes a
	// suspended task's wait still updates state correctly but leaves it
	// out of the ready set until ResumeTask. TaskInfo reports
	// TaskSuspended whenever this is true, regardless of the underlying
	// state.
	suspended bool
	timeslice time.Duration
	sliceLeft time.Duration

	// Stack hygiene.
	stackSize int
	stackUsed int // high-water mark, updated opportunistically
	canaryOK  bool
	guard     []byte // painted buffer checkStackLocked scans; nil if stack checking is off

	// Linkage into the scheduler's ready-set FIFOs: inReadySet records
	// whether the task is currently in its priority bucket's slice; the
	// buckets themselves live in scheduler.go.
	inReadySet bool

	// Blocking context: set while state == TaskBlocked.
	waitingOn *waiter

	// Mutex ownership, for priority inheritance (§4.G.2). heldMutexes
	// tracks the ceiling contribution of each mutex this task currently
	// owns, bounded by Config.MaxMutexDepthPerTask.
	heldMutexes []*mutexState

	// pendingSend/pendingRecv carry a message-queue direct hand-off value
	// across the blockOn baton pass; only one is non-nil at a time,
	// depending on whether this task is waiting to send or to receive.
	pendingSend *[]byte
	pendingRecv *[]byte

	// fn/arg are the task's entry point and argument, passed to fn by
	// taskTrampoline on the first baton handoff.
	fn  TaskFunc
	arg any

	// runCh is the baton: the scheduler sends on runCh to let this task's
	// goroutine proceed, and the task's goroutine blocks on runCh
	// whenever it is not the current running task. This is the "baton
	// passing" substitute for a real PendSV context switch, grounded on
	// the single-goroutine-runs-at-a-time handoff pattern used by the toy
	// scheduler in other_examples (a G/M/P style model where only one
	// goroutine actually executes kernel-managed work at a time).
	runCh chan struct{}
	// doneCh closes when the task's goroutine has returned; DeleteTask
	// does not wait on it.
	doneCh chan struct{}

	stats *taskStats

	createdAt int64
}
