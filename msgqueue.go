package kernel

import "time"

// queueState is the registry-held object for a bounded message queue
// (§4.G.3): a FIFO slice holding at most capacity messages, each itemSize
// bytes.
type queueState struct {
	id       uint32
	name     string
	capacity int
	itemSize int
	buf      [][]byte
	sendWait waitQueue // tasks blocked because the queue was full
	recvWait waitQueue // tasks blocked because the queue was empty
}

// QueueID identifies a bounded message queue.
type QueueID uint32

// CreateQueue creates a bounded FIFO message queue of the given capacity,
// each slot holding exactly itemSize bytes (§4.G.3, §3's "Fixed-size ring
// of max_items slots, each item_size bytes").
func (k *Kernel) CreateQueue(name string, capacity, itemSize int) (QueueID, error) {
	if capacity <= 0 || itemSize <= 0 {
		return 0, err(InvalidParam)
	}
	q := &queueState{name: name, capacity: capacity, itemSize: itemSize}
	id, rerr := k.reg.Register(KindQueue, name, q, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	q.id = id
	return QueueID(id), nil
}

func (k *Kernel) queueByID(id QueueID) (*queueState, bool) {
	obj, ok := k.reg.Get(KindQueue, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*queueState), true
}

// trySendLocked attempts the non-blocking fast path: hand msg off
// directly to a waiting receiver, or buffer it if there's room. Caller
// holds the critical section and retains it on return; trySendLocked
// itself never releases it. preempt reports whether a higher-priority
// task was woken, so the caller can request a context switch once the
// section is released.
func (k *Kernel) trySendLocked(q *queueState, msg []byte) (sent, preempt bool) {
	if w := q.recvWait.popHead(); w != nil {
		*w.task.pendingRecv = msg
		k.wakeWaiterSuccess(w)
		return true, k.higherThanCurrentLocked(w.task)
	}
	if len(q.buf) < q.capacity {
		q.buf = append(q.buf, msg)
		return true, false
	}
	return false, false
}

// tryReceiveLocked attempts the non-blocking fast path: dequeue the
// oldest buffered message, handing a waiting sender's message into the
// slot it frees. Caller holds the critical section and retains it.
func (k *Kernel) tryReceiveLocked(q *queueState) (msg []byte, got, preempt bool) {
	if len(q.buf) > 0 {
		msg = q.buf[0]
		q.buf = q.buf[1:]
		if w := q.sendWait.popHead(); w != nil {
			q.buf = append(q.buf, *w.task.pendingSend)
			w.task.pendingSend = nil
			k.wakeWaiterSuccess(w)
			preempt = k.higherThanCurrentLocked(w.task)
		}
		return msg, true, preempt
	}
	if w := q.sendWait.popHead(); w != nil {
		// Capacity 0 queues never occur (CreateQueue rejects them), but a
		// sender that raced in after buf drained still hands off directly.
		msg = *w.task.pendingSend
		w.task.pendingSend = nil
		k.wakeWaiterSuccess(w)
		preempt = k.higherThanCurrentLocked(w.task)
		return msg, true, preempt
	}
	return nil, false, false
}

// SendQueue enqueues msg, blocking up to timeout if the queue is full.
// If a receiver is already waiting, msg is handed to it directly. len(msg)
// must equal the queue's configured item size; a mismatch is a
// programming error reported as InvalidParam (§4.G.3's size-validation
// contract) rather than attempted anyway.
func (k *Kernel) SendQueue(id QueueID, msg []byte, timeout time.Duration) error {
	q, ok := k.queueByID(id)
	if !ok {
		return err(NotFound)
	}
	if len(msg) != q.itemSize {
		return err(InvalidParam)
	}
	k.cs.enter()
	if sent, preempt := k.trySendLocked(q, msg); sent {
		k.cs.exit()
		if preempt {
			k.port.RequestContextSwitch()
		}
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
	self.pendingSend = &msg
	return k.blockOn(&q.sendWait, timeout, self)
}

// TrySendQueue attempts the non-blocking fast path only, used from ISR
// context or anywhere the caller must never be parked: succeeds
// immediately via direct hand-off or buffering, otherwise fails with
// Busy, never Timeout (§5, §6.1's try_send). len(msg) must equal the
// queue's configured item size.
func (k *Kernel) TrySendQueue(id QueueID, msg []byte) error {
	q, ok := k.queueByID(id)
	if !ok {
		return err(NotFound)
	}
	if len(msg) != q.itemSize {
		return err(InvalidParam)
	}
	k.cs.enter()
	sent, preempt := k.trySendLocked(q, msg)
	k.cs.exit()
	if !sent {
		return err(Busy)
	}
	if preempt {
		k.port.RequestContextSwitch()
	}
	return nil
}

// SendQueueFromISR is the ISR-callable form of SendQueue (§5, §6.1):
// equivalent to TrySendQueue, since an interrupt handler must never
// block — a full queue with no waiting receiver fails with Busy rather
// than Timeout.
func (k *Kernel) SendQueueFromISR(id QueueID, msg []byte) error {
	return k.TrySendQueue(id, msg)
}

// ReceiveQueue dequeues the oldest message, blocking up to timeout if the
// queue is empty. The returned slice is always exactly the queue's
// configured item size.
func (k *Kernel) ReceiveQueue(id QueueID, timeout time.Duration) ([]byte, error) {
	q, ok := k.queueByID(id)
	if !ok {
		return nil, err(NotFound)
	}
	k.cs.enter()
	if msg, got, preempt := k.tryReceiveLocked(q); got {
		k.cs.exit()
		if preempt {
			k.port.RequestContextSwitch()
		}
		return msg, nil
	}
	if timeout == 0 {
		k.cs.exit()
		return nil, err(Timeout)
	}
	k.mu.Lock()
	self := k.current
	k.mu.Unlock()
	if self == nil {
		k.cs.exit()
		return nil, err(InvalidContext)
	}
	var received []byte
	self.pendingRecv = &received
	werr := k.blockOn(&q.recvWait, timeout, self)
	self.pendingRecv = nil
	if werr != nil {
		return nil, werr
	}
	return received, nil
}

// TryReceiveQueue attempts the non-blocking fast path only: succeeds
// immediately if a message is available, otherwise fails with Busy,
// never Timeout (§5, §6.1's try_receive).
func (k *Kernel) TryReceiveQueue(id QueueID) ([]byte, error) {
	q, ok := k.queueByID(id)
	if !ok {
		return nil, err(NotFound)
	}
	k.cs.enter()
	msg, got, preempt := k.tryReceiveLocked(q)
	k.cs.exit()
	if !got {
		return nil, err(Busy)
	}
	if preempt {
		k.port.RequestContextSwitch()
	}
	return msg, nil
}

// ReceiveQueueInto is the caller-supplied-buffer form of TryReceiveQueue,
// matching §4.G.3's "on receive, buffer must be ≥ item_size" validation
// literally: it copies the dequeued message into buf rather than
// returning a freshly allocated slice. It never blocks; use ReceiveQueue
// for a blocking wait. Returns the number of bytes copied (always the
// queue's item size) on success.
func (k *Kernel) ReceiveQueueInto(id QueueID, buf []byte) (int, error) {
	q, ok := k.queueByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	if len(buf) < q.itemSize {
		return 0, err(InvalidParam)
	}
	k.cs.enter()
	msg, got, preempt := k.tryReceiveLocked(q)
	k.cs.exit()
	if !got {
		return 0, err(Busy)
	}
	if preempt {
		k.port.RequestContextSwitch()
	}
	return copy(buf, msg), nil
}

// QueueLen reports the number of buffered messages.
func (k *Kernel) QueueLen(id QueueID) (int, error) {
	q, ok := k.queueByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return len(q.buf), nil
}

// DeleteQueue removes a queue, waking every blocked sender and receiver
// with [ErrDeleted].
func (k *Kernel) DeleteQueue(id QueueID) error {
	q, ok := k.queueByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	for _, t := range q.sendWait.wakeAll(wrapErr(Deleted, errObjectDeleted)) {
		t.waitingOn = nil
		t.state.Store(TaskReady)
		k.sched.markReady(t)
	}
	for _, t := range q.recvWait.wakeAll(wrapErr(Deleted, errObjectDeleted)) {
		t.waitingOn = nil
		t.state.Store(TaskReady)
		k.sched.markReady(t)
	}
	k.cs.exit()
	return k.reg.Unregister(KindQueue, uint32(id))
}
