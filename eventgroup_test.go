package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventGroupWaitAnyImmediateSuccess(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)
	newBits, err := k.SetEventBits(id, 0b101)
	require.NoError(t, err)
	require.Equal(t, uint32(0b101), newBits)

	bits, err := k.WaitEventBits(id, 0b001, false, false, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0b001), bits)

	remaining, err := k.EventBits(id)
	require.NoError(t, err)
	require.Equal(t, uint32(0b101), remaining, "no clearOnExit means the bits stay set")
}

func TestEventGroupWaitAnyTimesOutWhenUnset(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)
	_, err = k.WaitEventBits(id, 0b1, false, false, 0)
	require.Equal(t, Timeout, KindOf(err))
}

func TestEventGroupWaitAllBlocksUntilEveryBitSet(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)

	resultCh := make(chan uint32, 1)
	errCh := make(chan error, 1)
	waiterID, err := k.CreateTask(func(arg any) {
		bits, e := k.WaitEventBits(id, 0b011, true, true, Forever)
		errCh <- e
		resultCh <- bits
	}, CreateTaskParams{Name: "waiter", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(waiterID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	newBits, err := k.SetEventBits(id, 0b001)
	require.NoError(t, err)
	require.Equal(t, uint32(0b001), newBits)

	select {
	case <-errCh:
		t.Fatal("waiter woke before every required bit was set")
	case <-time.After(30 * time.Millisecond):
	}

	newBits, err = k.SetEventBits(id, 0b010)
	require.NoError(t, err)
	require.Zero(t, newBits, "the waiter's clearOnExit wake clears the satisfying bits before SetEventBits returns")

	select {
	case err := <-errCh:
		require.NoError(t, err)
		require.Equal(t, uint32(0b011), <-resultCh)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke once all required bits were set")
	}

	bits, err := k.EventBits(id)
	require.NoError(t, err)
	require.Zero(t, bits, "clearOnExit must clear the satisfying bits on wake")
}

func TestEventGroupDeleteWakesWaitersWithDeleted(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	waiterID, err := k.CreateTask(func(arg any) {
		_, e := k.WaitEventBits(id, 0b1, false, false, Forever)
		errCh <- e
	}, CreateTaskParams{Name: "waiter", Priority: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := k.TaskInfo(waiterID)
		return err == nil && info.State == TaskBlocked
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, k.DeleteEventGroup(id))

	select {
	case err := <-errCh:
		require.Equal(t, Deleted, KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("waiter never woken by delete")
	}
}

func TestEventGroupClearBitsReturnsNewValue(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)
	_, err = k.SetEventBits(id, 0b111)
	require.NoError(t, err)

	newBits, err := k.ClearEventBits(id, 0b010)
	require.NoError(t, err)
	require.Equal(t, uint32(0b101), newBits)

	bits, err := k.EventBits(id)
	require.NoError(t, err)
	require.Equal(t, uint32(0b101), bits)
}

func TestEventGroupSetBitsFromISRMatchesSetBits(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.CreateEventGroup("eg")
	require.NoError(t, err)

	newBits, err := k.SetEventBitsFromISR(id, 0b10)
	require.NoError(t, err)
	require.Equal(t, uint32(0b10), newBits)
}
