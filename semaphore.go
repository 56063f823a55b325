package kernel

import "time"

// semaphoreState is the registry-held object for a counting semaphore
// (§4.G.1).
type semaphoreState struct {
	id      uint32
	name    string
	count   int
	max     int
	waiters waitQueue
}

// CreateSemaphoreParams configures CreateSemaphore.
type CreateSemaphoreParams struct {
	Name         string
	InitialCount int
	MaxCount     int // 0 selects an unbounded counting semaphore
}

// SemaphoreID identifies a counting semaphore.
type SemaphoreID uint32

// CreateSemaphore creates a counting semaphore (§4.G.1).
func (k *Kernel) CreateSemaphore(p CreateSemaphoreParams) (SemaphoreID, error) {
	if p.InitialCount < 0 || (p.MaxCount > 0 && p.InitialCount > p.MaxCount) {
		return 0, err(InvalidParam)
	}
	s := &semaphoreState{name: p.Name, count: p.InitialCount, max: p.MaxCount}
	id, rerr := k.reg.Register(KindSemaphore, p.Name, s, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	s.id = id
	return SemaphoreID(id), nil
}

func (k *Kernel) semaphoreByID(id SemaphoreID) (*semaphoreState, bool) {
	obj, ok := k.reg.Get(KindSemaphore, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*semaphoreState), true
}

// TakeSemaphore decrements the semaphore's count, blocking up to timeout
// (or [Forever]) if it is currently zero.
func (k *Kernel) TakeSemaphore(id SemaphoreID, timeout time.Duration) error {
	s, ok := k.semaphoreByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if s.count > 0 {
		s.count--
		k.cs.exit()
		return nil
	}
	if timeout == 0 {
		k.cs.exit()
		return err(Timeout)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		k.cs.exit()
		return err(InvalidContext)
	}
	return k.blockOn(&s.waiters, timeout, self)
}

// TryTakeSemaphore attempts the non-blocking fast path only: succeeds
// immediately if the count is positive, otherwise fails with Busy,
// never Timeout, and never parks the caller (§5, §6.1's try_take).
func (k *Kernel) TryTakeSemaphore(id SemaphoreID) error {
	s, ok := k.semaphoreByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	if s.count > 0 {
		s.count--
		return nil
	}
	return err(Busy)
}

// GiveSemaphore hands one unit straight to the highest-priority waiter
// if there is one, leaving the count unchanged (no transient "count then
// wake" state is observable, matching the "direct hand-off" semantics
// required for §4.G.1/§4.G.3); otherwise it increments the count, failing
// with Overflow at MaxCount.
//
// GiveSemaphore is ISR-safe: it never blocks.
func (k *Kernel) GiveSemaphore(id SemaphoreID) error {
	s, ok := k.semaphoreByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if w := s.waiters.popHead(); w != nil {
		k.wakeWaiterSuccess(w)
		preempt := k.higherThanCurrentLocked(w.task)
		k.cs.exit()
		if preempt {
			k.port.RequestContextSwitch()
		}
		return nil
	}
	if s.max > 0 && s.count >= s.max {
		k.cs.exit()
		return err(Overflow)
	}
	s.count++
	k.cs.exit()
	return nil
}

// GiveSemaphoreFromISR is the ISR-callable form of GiveSemaphore (§5,
// §6.1): behaviorally identical, since GiveSemaphore already never
// blocks, but named separately so interrupt-context call sites are
// self-documenting.
func (k *Kernel) GiveSemaphoreFromISR(id SemaphoreID) error {
	return k.GiveSemaphore(id)
}

// SemaphoreCount returns the current count, for diagnostics.
func (k *Kernel) SemaphoreCount(id SemaphoreID) (int, error) {
	s, ok := k.semaphoreByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return s.count, nil
}

// DeleteSemaphore removes a semaphore, waking every blocked task with
// [ErrDeleted].
func (k *Kernel) DeleteSemaphore(id SemaphoreID) error {
	s, ok := k.semaphoreByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	woken := s.waiters.wakeAll(wrapErr(Deleted, errObjectDeleted))
	for _, t := range woken {
		t.waitingOn = nil
		t.state.Store(TaskReady)
		k.sched.markReady(t)
	}
	k.cs.exit()
	return k.reg.Unregister(KindSemaphore, uint32(id))
}

var errObjectDeleted = newPlainError("object deleted while task was waiting")
