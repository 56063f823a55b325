package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockScheduleWakeupOrdersByDeadline(t *testing.T) {
	port := newHostPort(0)
	c := newClock(port)

	wLate := &waiter{task: &taskControlBlock{name: "late"}}
	wEarly := &waiter{task: &taskControlBlock{name: "early"}}

	c.scheduleWakeup(wLate, 200)
	c.scheduleWakeup(wEarly, 100)

	at, ok := c.nextDeadline()
	require.True(t, ok)
	require.Equal(t, int64(100), at)

	due := c.due(100)
	require.Len(t, due, 1)
	require.Same(t, wEarly, due[0].waiter)

	due = c.due(200)
	require.Len(t, due, 1)
	require.Same(t, wLate, due[0].waiter)

	_, ok = c.nextDeadline()
	require.False(t, ok, "heap should be drained")
}

func TestClockCancelRemovesEntry(t *testing.T) {
	c := newClock(newHostPort(0))
	w := &waiter{task: &taskControlBlock{name: "t"}}
	d := c.scheduleWakeup(w, 500)

	c.cancel(d)
	_, ok := c.nextDeadline()
	require.False(t, ok)

	// Cancelling twice must not panic or corrupt the heap.
	c.cancel(d)
}

func TestClockSameDeadlineFIFO(t *testing.T) {
	c := newClock(newHostPort(0))
	w1 := &waiter{task: &taskControlBlock{name: "first"}}
	w2 := &waiter{task: &taskControlBlock{name: "second"}}
	c.scheduleWakeup(w1, 100)
	c.scheduleWakeup(w2, 100)

	due := c.due(100)
	require.Len(t, due, 2)
	require.Same(t, w1, due[0].waiter)
	require.Same(t, w2, due[1].waiter)
}

func TestClockDueIsExclusiveOfFuture(t *testing.T) {
	c := newClock(newHostPort(0))
	w := &waiter{task: &taskControlBlock{name: "t"}}
	c.scheduleWakeup(w, 1000)

	due := c.due(500)
	require.Empty(t, due)

	due = c.due(1000)
	require.Len(t, due, 1)
}
