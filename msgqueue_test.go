package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueCreateRejectsNonPositiveCapacity(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateQueue("q", 0, 4)
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestQueueCreateRejectsNonPositiveItemSize(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateQueue("q", 2, 0)
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestQueueSendRejectsWrongSizedMessage(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 2, 4)
	require.NoError(t, err)
	err = k.SendQueue(id, []byte("too long"), 0)
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestQueueReceiveIntoRejectsUndersizedBuffer(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 2, 4)
	require.NoError(t, err)
	_, err = k.ReceiveQueueInto(id, make([]byte, 2))
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestQueueSendReceiveFIFONonBlocking(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 2, 1)
	require.NoError(t, err)

	require.NoError(t, k.SendQueue(id, []byte("a"), 0))
	require.NoError(t, k.SendQueue(id, []byte("b"), 0))
	err = k.SendQueue(id, []byte("c"), 0)
	require.Equal(t, Timeout, KindOf(err), "a zero timeout on a full queue must fail fast")

	n, err := k.QueueLen(id)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	v, err := k.ReceiveQueue(id, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)

	v, err = k.ReceiveQueue(id, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), v)

	_, err = k.ReceiveQueue(id, 0)
	require.Equal(t, Timeout, KindOf(err))
}

func TestQueueTrySendTryReceiveReturnBusyNotTimeout(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 1)
	require.NoError(t, err)

	_, err = k.TryReceiveQueue(id)
	require.Equal(t, Busy, KindOf(err), "try_receive on an empty queue must fail with Busy, not Timeout")

	require.NoError(t, k.TrySendQueue(id, []byte("x")))
	err = k.TrySendQueue(id, []byte("y"))
	require.Equal(t, Busy, KindOf(err), "try_send on a full queue must fail with Busy, not Timeout")

	v, err := k.TryReceiveQueue(id)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), v)
}

func TestQueueTrySendHandsOffDirectlyToWaitingReceiver(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 1)
	require.NoError(t, err)

	recvErr := make(chan error, 1)
	recvVal := make(chan []byte, 1)
	receiverID, err := k.CreateTask(func(arg any) {
		v, e := k.ReceiveQueue(id, Forever)
		recvErr <- e
		recvVal <- v
	}, CreateTaskParams{Name: "receiver", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(receiverID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, k.TrySendQueue(id, []byte("x")))

	select {
	case err := <-recvErr:
		require.NoError(t, err)
		require.Equal(t, []byte("x"), <-recvVal)
	case <-time.After(time.Second):
		t.Fatal("blocked receive never completed")
	}

	n, err := k.QueueLen(id)
	require.NoError(t, err)
	require.Zero(t, n, "the try_send handed off directly rather than buffering")
}

func TestQueueReceiveQueueIntoCopiesIntoCallerBuffer(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 4)
	require.NoError(t, err)
	require.NoError(t, k.SendQueue(id, []byte("abcd"), 0))

	small := make([]byte, 2)
	_, err = k.ReceiveQueueInto(id, small)
	require.Equal(t, InvalidParam, KindOf(err), "buffer smaller than item_size must be rejected")

	big := make([]byte, 8)
	n, err := k.ReceiveQueueInto(id, big)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("abcd"), big[:n])

	_, err = k.ReceiveQueueInto(id, big)
	require.Equal(t, Busy, KindOf(err), "receive_into on an empty queue must fail with Busy")
}

func TestQueueSendFromISRIsNonBlocking(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 1)
	require.NoError(t, err)
	require.NoError(t, k.SendQueueFromISR(id, []byte("x")))
	err = k.SendQueueFromISR(id, []byte("y"))
	require.Equal(t, Busy, KindOf(err), "send_from_isr on a full queue with no waiter must fail with Busy, not Timeout")
}

func TestQueueBlockingReceiveWakesOnSend(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 1)
	require.NoError(t, err)

	recvErr := make(chan error, 1)
	recvVal := make(chan []byte, 1)
	receiverID, err := k.CreateTask(func(arg any) {
		v, e := k.ReceiveQueue(id, Forever)
		recvErr <- e
		recvVal <- v
	}, CreateTaskParams{Name: "receiver", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(receiverID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, k.SendQueue(id, []byte("x"), 0))

	select {
	case err := <-recvErr:
		require.NoError(t, err)
		require.Equal(t, []byte("x"), <-recvVal)
	case <-time.After(time.Second):
		t.Fatal("blocked receive never completed")
	}

	// The send handed off directly: the buffer must never have held it.
	n, err := k.QueueLen(id)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestQueueBlockingSendWakesOnReceive(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 5)
	require.NoError(t, err)
	require.NoError(t, k.SendQueue(id, []byte("first"), 0))

	sendErr := make(chan error, 1)
	senderID, err := k.CreateTask(func(arg any) {
		sendErr <- k.SendQueue(id, []byte("secnd"), Forever)
	}, CreateTaskParams{Name: "sender", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(senderID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	v, err := k.ReceiveQueue(id, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), v)

	select {
	case err := <-sendErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked send never completed")
	}

	v, err = k.ReceiveQueue(id, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("secnd"), v)
}

func TestQueueSendTimesOutWhenFull(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 4)
	require.NoError(t, err)
	require.NoError(t, k.SendQueue(id, []byte("only"), 0))

	resultCh := make(chan error, 1)
	_, err = k.CreateTask(func(arg any) {
		resultCh <- k.SendQueue(id, []byte("full"), 20*time.Millisecond)
	}, CreateTaskParams{Name: "sender", Priority: 5})
	require.NoError(t, err)

	select {
	case err := <-resultCh:
		require.Equal(t, Timeout, KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("send never timed out")
	}
}

func TestQueueDeleteWakesSendersAndReceivers(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateQueue("q", 1, 4)
	require.NoError(t, err)
	require.NoError(t, k.SendQueue(id, []byte("fill"), 0))

	sendErr := make(chan error, 1)
	senderID, err := k.CreateTask(func(arg any) {
		sendErr <- k.SendQueue(id, []byte("more"), Forever)
	}, CreateTaskParams{Name: "sender", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(senderID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, k.DeleteQueue(id))

	select {
	case err := <-sendErr:
		require.Equal(t, Deleted, KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("blocked sender never woken by delete")
	}
}
