package kernel

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
)

// Hooks holds the optional callbacks described in §6.3. StackOverflow and
// AssertionFailure run with interrupts masked (i.e. from inside the
// kernel's critical section); Startup, Shutdown, Idle and Switch run
// outside it. None of them may block.
type Hooks struct {
	// Startup runs once, just before the scheduler's first task is
	// selected.
	Startup func()
	// Shutdown runs once, when the kernel is torn down.
	Shutdown func()
	// Idle runs on each idle-task iteration; may be nil.
	Idle func()
	// Switch runs on every context switch with the outgoing and
	// incoming task handles.
	Switch func(from, to TaskID)
	// StackOverflow runs when a canary violation is detected.
	StackOverflow func(task TaskID)
	// AssertionFailure runs when a programming-error invariant is
	// violated (e.g. unlocking a mutex not owned by the caller).
	AssertionFailure func(file string, line int, expr string)
}

// diagLimiter rate-limits hook-triggered diagnostic logging per category
// (a task name, or an error kind), so a single faulting task cannot flood
// the log with repeated stack-overflow or assertion-failure messages.
// Grounded on github.com/joeycumines/go-catrate, the sliding-window rate
// limiter also used internally by the logiface stack.
type diagLimiter struct {
	limiter *catrate.Limiter
}

func newDiagLimiter() *diagLimiter {
	return &diagLimiter{
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
	}
}

// allow reports whether a diagnostic for the given category may be
// emitted right now.
func (d *diagLimiter) allow(category string) bool {
	_, ok := d.limiter.Allow(category)
	return ok
}
