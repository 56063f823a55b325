package kernel

import "time"

// eventGroupState is the registry-held object for an event group
// (§4.G.4): a set of up to 32 flag bits that tasks can wait on any-of or
// all-of, with an optional clear-on-exit.
type eventGroupState struct {
	id      uint32
	name    string
	bits    uint32
	waiters waitQueue
}

// EventGroupID identifies an event group.
type EventGroupID uint32

// CreateEventGroup creates an event group with all bits initially clear.
func (k *Kernel) CreateEventGroup(name string) (EventGroupID, error) {
	eg := &eventGroupState{name: name}
	id, rerr := k.reg.Register(KindEventGroup, name, eg, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	eg.id = id
	return EventGroupID(id), nil
}

func (k *Kernel) eventGroupByID(id EventGroupID) (*eventGroupState, bool) {
	obj, ok := k.reg.Get(KindEventGroup, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*eventGroupState), true
}

// satisfied reports whether bits meets the wait condition described by
// mask/waitAll.
func satisfied(bits, mask uint32, waitAll bool) bool {
	if waitAll {
		return bits&mask == mask
	}
	return bits&mask != 0
}

// WaitEventBits blocks until mask is satisfied against the group's
// current bits (ANY set bit in mask if waitAll is false, ALL bits in
// mask if true), returning the bits of mask that were set at the moment
// the condition was met. If clearOnExit is set, the satisfying bits (mask, restricted
// to waitAll's ANY/ALL reading) are cleared atomically with the wake.
func (k *Kernel) WaitEventBits(id EventGroupID, mask uint32, waitAll, clearOnExit bool, timeout time.Duration) (uint32, error) {
	eg, ok := k.eventGroupByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	if satisfied(eg.bits, mask, waitAll) {
		observed := eg.bits & mask
		if clearOnExit {
			eg.bits &^= mask
		}
		k.cs.exit()
		return observed, nil
	}
	if timeout == 0 {
		k.cs.exit()
		return 0, err(Timeout)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		k.cs.exit()
		return 0, err(InvalidContext)
	}
	w := eg.waiters.add(self)
	w.mask, w.waitAll, w.clearOnExit = mask, waitAll, clearOnExit
	self.waitingOn = w
	self.state.Store(TaskBlocked)
	k.sched.removeReady(self)
	if timeout != Forever {
		at := k.port.Now() + int64(timeout)
		w.dl = k.clk.scheduleWakeup(w, at)
	}
	k.cs.exit()

	k.reschedule(true)
	werr := <-w.wakeCh

	if w.dl != nil {
		k.cs.enter()
		k.clk.cancel(w.dl)
		k.cs.exit()
	}
	if werr != nil {
		return 0, werr
	}
	return w.mask, nil
}

// SetEventBits sets mask's bits and wakes every waiter whose condition is
// now satisfied, in wait order, returning the bits as they stand once
// every wake (and any clear-on-exit) has been applied (§4.G.4:
// "set_bits(mask): flags |= mask; return new flags"). ISR-safe: never
// blocks.
func (k *Kernel) SetEventBits(id EventGroupID, mask uint32) (uint32, error) {
	eg, ok := k.eventGroupByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	eg.bits |= mask
	var woken []*taskControlBlock
	for _, w := range eg.waiters.snapshot() {
		if !satisfied(eg.bits, w.mask, w.waitAll) {
			continue
		}
		eg.waiters.remove(w)
		observed := eg.bits & w.mask
		if w.clearOnExit {
			eg.bits &^= w.mask
		}
		w.mask = observed // stash the observed subset for WaitEventBits to return
		w.task.waitingOn = nil
		w.task.state.Store(TaskReady)
		k.sched.markReady(w.task)
		w.wakeCh <- nil
		woken = append(woken, w.task)
	}
	preempt := false
	for _, t := range woken {
		if k.higherThanCurrentLocked(t) {
			preempt = true
			break
		}
	}
	newBits := eg.bits
	k.cs.exit()
	if preempt {
		k.port.RequestContextSwitch()
	}
	return newBits, nil
}

// SetEventBitsFromISR is the ISR-callable form of SetEventBits (§5,
// §6.1): behaviorally identical, since SetEventBits already never
// blocks, but named separately so interrupt-context call sites are
// self-documenting.
func (k *Kernel) SetEventBitsFromISR(id EventGroupID, mask uint32) (uint32, error) {
	return k.SetEventBits(id, mask)
}

// ClearEventBits clears mask's bits, returning the bits as they stand
// immediately after clearing (§4.G.4: "clear_bits(mask): flags &= ~mask;
// return new flags").
func (k *Kernel) ClearEventBits(id EventGroupID, mask uint32) (uint32, error) {
	eg, ok := k.eventGroupByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	eg.bits &^= mask
	return eg.bits, nil
}

// EventBits returns the group's current bits.
func (k *Kernel) EventBits(id EventGroupID) (uint32, error) {
	eg, ok := k.eventGroupByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return eg.bits, nil
}

// DeleteEventGroup removes an event group, waking every waiter with
// [ErrDeleted].
func (k *Kernel) DeleteEventGroup(id EventGroupID) error {
	eg, ok := k.eventGroupByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	for _, t := range eg.waiters.wakeAll(wrapErr(Deleted, errObjectDeleted)) {
		t.waitingOn = nil
		t.state.Store(TaskReady)
		k.sched.markReady(t)
	}
	k.cs.exit()
	return k.reg.Unregister(KindEventGroup, uint32(id))
}
