package kernel

import "time"

// TimerID identifies a software timer.
type TimerID uint32

// TimerCallback runs when a software timer fires. It runs outside the
// kernel's critical section (so it may itself call blocking-safe,
// ISR-safe kernel APIs like GiveSemaphore), but on the clock's own
// dispatch path, not on any task's goroutine; it must not block.
type TimerCallback func(TimerID)

// softwareTimer is the registry-held object backing the timer API
// supplementing §4.D (create/start/stop/reset/set_period/delete),
// following SPEC_FULL.md §12.
type softwareTimer struct {
	id       uint32
	name     string
	period   time.Duration
	oneShot  bool
	callback TimerCallback
	active   bool
	dl       *deadline
}

// CreateTimer creates a software timer in the stopped state; call
// StartTimer to arm it. A one-shot timer deactivates itself after firing
// once; a periodic timer reloads automatically.
func (k *Kernel) CreateTimer(name string, period time.Duration, oneShot bool, cb TimerCallback) (TimerID, error) {
	if period <= 0 || cb == nil {
		return 0, err(InvalidParam)
	}
	t := &softwareTimer{name: name, period: period, oneShot: oneShot, callback: cb}
	id, rerr := k.reg.Register(KindTimer, name, t, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	t.id = id
	return TimerID(id), nil
}

func (k *Kernel) timerByID(id TimerID) (*softwareTimer, bool) {
	obj, ok := k.reg.Get(KindTimer, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*softwareTimer), true
}

// StartTimer arms the timer to fire period from now. Starting an
// already-active timer is equivalent to ResetTimer.
func (k *Kernel) StartTimer(id TimerID) error {
	t, ok := k.timerByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	k.armTimerLocked(t)
	return nil
}

// armTimerLocked (re)arms t's deadline for period from now. Caller holds
// the critical section.
func (k *Kernel) armTimerLocked(t *softwareTimer) {
	if t.dl != nil {
		k.clk.cancel(t.dl)
	}
	at := k.port.Now() + int64(t.period)
	t.dl = k.clk.scheduleTimer(t, at)
	t.active = true
}

// StopTimer disarms the timer; it will not fire until StartTimer is
// called again.
func (k *Kernel) StopTimer(id TimerID) error {
	t, ok := k.timerByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	if t.dl != nil {
		k.clk.cancel(t.dl)
		t.dl = nil
	}
	t.active = false
	return nil
}

// ResetTimer restarts the countdown from now, using the current period.
func (k *Kernel) ResetTimer(id TimerID) error {
	return k.StartTimer(id)
}

// SetTimerPeriod changes the period used by future (re)arms. If the
// timer is currently active, it is immediately rearmed from now using
// the new period.
func (k *Kernel) SetTimerPeriod(id TimerID, period time.Duration) error {
	if period <= 0 {
		return err(InvalidParam)
	}
	t, ok := k.timerByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	t.period = period
	if t.active {
		k.armTimerLocked(t)
	}
	return nil
}

// DeleteTimer stops and removes a timer.
func (k *Kernel) DeleteTimer(id TimerID) error {
	t, ok := k.timerByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if t.dl != nil {
		k.clk.cancel(t.dl)
		t.dl = nil
	}
	k.cs.exit()
	return k.reg.Unregister(KindTimer, uint32(id))
}

// fireSoftwareTimer runs a timer's callback and reloads it if periodic.
// Called from onTimerFired, outside the critical section.
func (k *Kernel) fireSoftwareTimer(t *softwareTimer) {
	if t.oneShot {
		k.cs.enter()
		t.active = false
		t.dl = nil
		k.cs.exit()
	} else {
		k.cs.enter()
		at := k.port.Now() + int64(t.period)
		t.dl = k.clk.scheduleTimer(t, at)
		k.cs.exit()
	}
	if k.diag.allow("timer:" + t.name) {
		k.logger.Debugf("kernel: timer %q (id=%d) fired", t.name, t.id)
	}
	t.callback(TimerID(t.id))
}
