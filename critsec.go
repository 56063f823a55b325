package kernel

import "sync"

// critSection implements §4.H: a nestable interrupt-masked region. On a
// real port, enter() masks interrupts in hardware and exit() restores the
// saved mask; here the host simulation's "interrupt mask" is a single
// mutex shared by every task goroutine and by ISR simulation calls, which
// gives the same mutual-exclusion guarantee the specification requires
// ("all shared kernel state is mutated only inside a critical section").
//
// depth tracks nesting so that only the outermost enter/exit pair touches
// the underlying port call, matching the documented discipline.
type critSection struct {
	mu    sync.Mutex
	port  Port
	depth int
	saved bool // the interrupt-enable state saved by the outermost enter()
}

func newCritSection(port Port) *critSection {
	return &critSection{port: port}
}

// enter masks interrupts if this is the outermost entry, then increments
// depth. Must be paired with exit.
func (c *critSection) enter() {
	c.mu.Lock()
	if c.depth == 0 {
		c.saved = c.port.MaskInterrupts()
	}
	c.depth++
}

// exit decrements depth, restoring interrupts if it reaches zero.
func (c *critSection) exit() {
	c.depth--
	if c.depth < 0 {
		panic("kernel: critical section exit without matching enter")
	}
	if c.depth == 0 {
		c.port.RestoreInterrupts(c.saved)
	}
	c.mu.Unlock()
}

// Depth reports the current nesting depth. Intended for diagnostics and
// assertions (e.g. "this must be called from within a critical section").
func (c *critSection) Depth() int {
	// Best-effort: depth is only meaningful when called by the holder.
	return c.depth
}
