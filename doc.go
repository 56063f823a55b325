// Package kernel implements the core of a preemptive, priority-based
// real-time kernel for a single-core Cortex-M4-class microcontroller: the
// task scheduler, the tickless time service, and the blocking-primitive
// subsystem (counting semaphore, recursive mutex with priority inheritance,
// bounded message queue, event group, fixed-block memory pool).
//
// # Architecture
//
// The kernel is built around a [Kernel] value owning the ready set, the
// tickless deadline queue, the object registry, and the critical-section
// depth counter. Tasks are modeled as goroutines holding a single-use
// baton: at any instant exactly one task goroutine is permitted to run,
// handed the baton by [Kernel.reschedule], which mirrors the Cortex-M
// PendSV exception handing control from one stack to another. This gives
// the single-core, non-reentrant scheduling semantics described by the
// specification without requiring real hardware interrupts to drive it.
//
// # Platform Port
//
// The only architecture-specific surface is [Port]: interrupt masking,
// the hardware one-shot timer, and monotonic time. This package provides
// a host simulation ([newHostPort]) good enough to exercise every
// invariant under `go test`; a real board port would replace it with
// PendSV/SysTick/NVIC code behind the same interface.
//
// # Blocking Primitives
//
// The counting semaphore, recursive mutex, bounded message queue and event
// group (identified by [SemaphoreID], [MutexID], [QueueID],
// [EventGroupID]) share one wait/release template, [Kernel.blockOn] for
// the first three and an inline copy of it in [Kernel.WaitEventBits]; the
// fixed-block pool ([PoolID]) never blocks, and [Kernel.AllocBlock]
// fails with OutOfMemory when empty. The template: block by inserting into a priority-ordered wait list
// and, unless the caller asked to wait forever, the tickless deadline
// queue; release by waking the highest-priority waiter directly rather
// than updating a counter the waiter would otherwise have to
// re-observe. [Kernel.GiveSemaphore], [Kernel.SendQueue], and
// [Kernel.SetEventBits] never block by construction, so they're already
// safe to call from a timer callback or other non-task context; the
// explicit [Kernel.GiveSemaphoreFromISR], [Kernel.SendQueueFromISR], and
// [Kernel.SetEventBitsFromISR] forms exist so interrupt-context call
// sites are self-documenting rather than relying on a reader knowing
// which non-ISR operations happen to qualify. The semaphore, mutex and
// queue also have Try variants ([Kernel.TryTakeSemaphore], [Kernel.TryLockMutex],
// [Kernel.TrySendQueue], [Kernel.TryReceiveQueue]) that attempts only the
// non-blocking fast path and reports failure as Busy rather than parking
// the caller or returning Timeout.
//
// # Thread Safety
//
// All kernel-owned state is mutated only inside the critical section
// owned by the unexported critSection type, which models interrupt
// masking. The FromISR and Try variants above are the primitives'
// ISR-safe surface; every other exported method that can block (Lock,
// Take, Receive, Wait...) must be called from a task's own goroutine.
package kernel
