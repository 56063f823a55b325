package kernel

import "sync/atomic"

// TaskState is one of the states in §3's TCB state machine.
type TaskState uint32

const (
	// TaskInit is the state while the TCB is being built; CreateTask
	// moves the task to Ready before returning (there is no separate
	// start step).
	TaskInit TaskState = iota
	// TaskReady means the task is linked into the ready set, waiting to
	// be selected.
	TaskReady
	// TaskRunning means the task currently holds the CPU.
	TaskRunning
	// TaskBlocked means the task is linked into exactly one wait list
	// and, if its deadline is non-zero, the deadline queue.
	TaskBlocked
	// TaskSuspended is reported by TaskInfo while the task's suspended
	// flag is set; the task is not eligible for selection regardless of
	// readiness. It is never stored in the state field itself, and
	// suspension does not nest (a second SuspendTask fails with Busy).
	TaskSuspended
	// TaskTerminated is the terminal state after Delete or the task
	// function returning.
	TaskTerminated
)

// String returns a human-readable state name.
func (s TaskState) String() string {
	switch s {
	case TaskInit:
		return "Init"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskBlocked:
		return "Blocked"
	case TaskSuspended:
		return "Suspended"
	case TaskTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// atomicTaskState is a lock-free holder for a TaskState, in the spirit of
// the teacher's FastState: reads never block the scheduler's hot path, and
// writes are only ever performed from inside the kernel's critical
// section, so plain Store (not CAS) is sufficient — there is never a
// concurrent writer to race against.
type atomicTaskState struct {
	v atomic.Uint32
}

func (s *atomicTaskState) Load() TaskState {
	return TaskState(s.v.Load())
}

func (s *atomicTaskState) Store(state TaskState) {
	s.v.Store(uint32(state))
}
