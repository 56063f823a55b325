package kernel

// stackCanaryByte is the sentinel pattern painted into a task's tracked
// stack buffer at creation, the same 0xa5 "paint" value classic RTOS
// kernels use for their high-water-mark algorithm. Goroutines do not
// expose their real stack memory to application code, so guard is a
// host-simulated stand-in sized to the task's declared StackSize: on
// real hardware the identical scan runs against the actual memory region
// the linker placed under the task.
const stackCanaryByte = 0xa5

// stackRedZoneSize is how many bytes at the deep end of the guard buffer
// must keep their paint intact; a mismatch there means something wrote
// past the declared stack bound.
const stackRedZoneSize = 16

// newStackGuard allocates and paints a size-byte guard buffer, or returns
// nil if size is non-positive or stack checking wasn't requested.
func newStackGuard(size int, enabled bool) []byte {
	if !enabled || size <= 0 {
		return nil
	}
	b := make([]byte, size)
	for i := range b {
		b[i] = stackCanaryByte
	}
	return b
}

// checkStackLocked scans tcb's guard buffer for the deepest byte no longer
// showing the paint pattern (the high-water mark of stack ever used) and
// verifies the red zone at the far end is untouched. Caller holds the
// critical section. Returns false, having already invoked
// hooks.StackOverflow, if the red zone was found corrupted.
func (k *Kernel) checkStackLocked(tcb *taskControlBlock) bool {
	guard := tcb.guard
	if !k.cfg.EnableStackCheck || guard == nil {
		return true
	}
	used := 0
	for i, b := range guard {
		if b != stackCanaryByte {
			used = len(guard) - i
			break
		}
	}
	if used > tcb.stackUsed {
		tcb.stackUsed = used
	}

	zone := guard
	if len(zone) > stackRedZoneSize {
		zone = zone[:stackRedZoneSize]
	}
	for _, b := range zone {
		if b != stackCanaryByte {
			tcb.canaryOK = false
			break
		}
	}
	if tcb.canaryOK {
		return true
	}
	if k.diag.allow("stack:" + tcb.name) {
		k.logger.Errorf("kernel: task %q (id=%d) stack canary violated", tcb.name, tcb.id)
	}
	if k.hooks.StackOverflow != nil {
		k.hooks.StackOverflow(tcb.id)
	}
	return false
}

// assertLocked reports a violated programming-error invariant (e.g.
// unlocking a mutex the caller does not own) via hooks.AssertionFailure,
// rate-limited the same way stack-overflow diagnostics are. Caller holds
// the critical section.
func (k *Kernel) assertLocked(expr string) {
	if k.diag.allow("assert:" + expr) {
		k.logger.Errorf("kernel: assertion failed: %s", expr)
	}
	if k.hooks.AssertionFailure != nil {
		k.hooks.AssertionFailure("", 0, expr)
	}
}
