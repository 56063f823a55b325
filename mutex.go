package kernel

import "time"

// mutexState is the registry-held object for a recursive mutex with
// priority inheritance (§4.G.2).
type mutexState struct {
	id      uint32
	name    string
	owner   *taskControlBlock
	depth   int // recursive lock count; 0 means unowned
	ceiling uint8 // highest priority among current waiters; only meaningful while owned
	hasCeiling bool
	waiters waitQueue
}

// MutexID identifies a recursive mutex.
type MutexID uint32

// CreateMutex creates an unowned recursive mutex.
func (k *Kernel) CreateMutex(name string) (MutexID, error) {
	m := &mutexState{name: name}
	m.waiters.owner = m
	id, rerr := k.reg.Register(KindMutex, name, m, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	m.id = id
	return MutexID(id), nil
}

func (k *Kernel) mutexByID(id MutexID) (*mutexState, bool) {
	obj, ok := k.reg.Get(KindMutex, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*mutexState), true
}

// LockMutex acquires m, recursively if the caller already owns it.
// Blocking callers that find m held by a lower-priority task boost that
// owner's effective priority to their own for the duration of the hold,
// walking the ownership chain up to Config.MaxMutexDepthPerTask hops to
// bound the cost of priority inheritance (§4.G.2, decided in
// SPEC_FULL.md §13).
func (k *Kernel) LockMutex(id MutexID, timeout time.Duration) error {
	m, ok := k.mutexByID(id)
	if !ok {
		return err(NotFound)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		return err(InvalidContext)
	}

	k.cs.enter()
	if m.owner == nil {
		k.grantMutexLocked(m, self)
		k.cs.exit()
		return nil
	}
	if m.owner == self {
		if len(self.heldMutexes) >= k.cfg.MaxMutexDepthPerTask {
			k.cs.exit()
			return err(Overflow)
		}
		m.depth++
		k.cs.exit()
		return nil
	}
	if timeout == 0 {
		k.cs.exit()
		return err(Timeout)
	}
	k.boostChainLocked(m, self.priority)
	return k.blockOn(&m.waiters, timeout, self)
}

// TryLockMutex attempts to acquire m without blocking: succeeds
// immediately if m is unowned, or already owned by the caller
// (recursively, subject to the same MaxMutexDepthPerTask bound as
// LockMutex), otherwise fails with Busy rather than parking the caller
// or boosting the owner's priority (§5, §6.1's try_lock).
func (k *Kernel) TryLockMutex(id MutexID) error {
	m, ok := k.mutexByID(id)
	if !ok {
		return err(NotFound)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		return err(InvalidContext)
	}

	k.cs.enter()
	defer k.cs.exit()
	if m.owner == nil {
		k.grantMutexLocked(m, self)
		return nil
	}
	if m.owner == self {
		if len(self.heldMutexes) >= k.cfg.MaxMutexDepthPerTask {
			return err(Overflow)
		}
		m.depth++
		return nil
	}
	return err(Busy)
}

// grantMutexLocked transfers ownership of an unowned mutex to t. Caller
// holds the critical section.
func (k *Kernel) grantMutexLocked(m *mutexState, t *taskControlBlock) {
	m.owner = t
	m.depth = 1
	m.hasCeiling = false
	if len(t.heldMutexes) < k.cfg.MaxMutexDepthPerTask {
		t.heldMutexes = append(t.heldMutexes, m)
	}
}

// boostChainLocked raises m's owner (and transitively, whatever mutex
// that owner is itself blocked on) to at least waiterPriority, walking at
// most Config.MaxMutexDepthPerTask hops so a cycle or a pathologically
// long chain cannot stall the boosting task indefinitely.
func (k *Kernel) boostChainLocked(m *mutexState, waiterPriority uint8) {
	cur := m
	for hop := 0; hop < k.cfg.MaxMutexDepthPerTask && cur != nil && cur.owner != nil; hop++ {
		owner := cur.owner
		if !cur.hasCeiling || waiterPriority < cur.ceiling {
			cur.ceiling = waiterPriority
			cur.hasCeiling = true
		}
		k.recomputeEffectivePriorityLocked(owner)
		if owner.waitingOn == nil || owner.waitingOn.queue == nil {
			break
		}
		next, ok := owner.waitingOn.queue.owner.(*mutexState)
		if !ok {
			break
		}
		cur = next
	}
}

// recomputeEffectivePriorityLocked sets tcb.priority to the minimum
// (numerically, i.e. highest) of its base priority and every ceiling
// contributed by a mutex it currently holds (the max-ceiling restore
// rule decided in SPEC_FULL.md §13). Caller holds the critical section.
func (k *Kernel) recomputeEffectivePriorityLocked(tcb *taskControlBlock) {
	eff := tcb.basePriority
	for _, m := range tcb.heldMutexes {
		if m.hasCeiling && m.ceiling < eff {
			eff = m.ceiling
		}
	}
	if eff == tcb.priority {
		return
	}
	tcb.priority = eff
	if tcb.inReadySet {
		k.sched.removeReady(tcb)
		k.sched.markReady(tcb)
	}
	if tcb.waitingOn != nil && tcb.waitingOn.queue != nil {
		tcb.waitingOn.queue.reprioritize(tcb.waitingOn, eff)
	}
}

// UnlockMutex releases one level of recursion. When the recursion count
// reaches zero, ownership passes directly to the highest-priority waiter
// (if any) and the outgoing owner's effective priority is restored via
// recomputeEffectivePriorityLocked.
func (k *Kernel) UnlockMutex(id MutexID) error {
	m, ok := k.mutexByID(id)
	if !ok {
		return err(NotFound)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()

	k.cs.enter()
	if m.owner != self {
		k.assertLocked("UnlockMutex: caller does not own mutex")
		k.cs.exit()
		return err(InvalidParam)
	}
	m.depth--
	if m.depth > 0 {
		k.cs.exit()
		return nil
	}
	k.removeHeldLocked(self, m)
	k.recomputeEffectivePriorityLocked(self)

	if w := m.waiters.popHead(); w != nil {
		k.grantMutexLocked(m, w.task)
		k.wakeWaiterSuccess(w)
		preempt := k.higherThanCurrentLocked(w.task)
		k.cs.exit()
		if preempt {
			k.port.RequestContextSwitch()
		}
		return nil
	}
	m.owner = nil
	m.hasCeiling = false
	k.cs.exit()
	return nil
}

// removeHeldLocked drops m from tcb.heldMutexes.
func (k *Kernel) removeHeldLocked(tcb *taskControlBlock, m *mutexState) {
	for i, h := range tcb.heldMutexes {
		if h == m {
			tcb.heldMutexes = append(tcb.heldMutexes[:i], tcb.heldMutexes[i+1:]...)
			return
		}
	}
}

// DeleteMutex removes an unowned mutex. It refuses with Busy if the
// mutex is currently owned (§4.G.2: "delete: refuses with Busy if
// owner != nil"), regardless of whether any task is also waiting on it.
func (k *Kernel) DeleteMutex(id MutexID) error {
	m, ok := k.mutexByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if m.owner != nil {
		k.cs.exit()
		return err(Busy)
	}
	k.cs.exit()
	return k.reg.Unregister(KindMutex, uint32(id))
}

// releaseHeldMutexesLocked is called when a task terminates while still
// holding mutexes, handing each one directly to its highest-priority
// waiter (or releasing it to the free state) rather than leaving it
// permanently locked. Caller holds the critical section.
func (k *Kernel) releaseHeldMutexesLocked(tcb *taskControlBlock) {
	held := tcb.heldMutexes
	tcb.heldMutexes = nil
	for _, m := range held {
		if m.owner != tcb {
			continue
		}
		if w := m.waiters.popHead(); w != nil {
			k.grantMutexLocked(m, w.task)
			w.task.waitingOn = nil
			w.task.state.Store(TaskReady)
			k.sched.markReady(w.task)
			select {
			case w.wakeCh <- nil:
			default:
			}
			continue
		}
		m.owner = nil
		m.depth = 0
		m.hasCeiling = false
	}
}

// waitQueue.owner lets boostChainLocked walk from "task T is blocked on
// this waitQueue" back to "which mutex does this waitQueue belong to".
// Semaphores and message queues leave owner nil.
