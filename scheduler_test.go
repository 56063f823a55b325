package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyBucketFIFO(t *testing.T) {
	var b readyBucket
	a := &taskControlBlock{name: "a"}
	c := &taskControlBlock{name: "c"}
	b.pushBack(a)
	b.pushBack(c)
	require.Same(t, a, b.popFront())
	require.Same(t, c, b.popFront())
	require.Nil(t, b.popFront())
}

func TestReadyBucketRemove(t *testing.T) {
	var b readyBucket
	a := &taskControlBlock{name: "a"}
	c := &taskControlBlock{name: "c"}
	b.pushBack(a)
	b.pushBack(c)
	require.True(t, b.remove(a))
	require.False(t, b.remove(a))
	require.Same(t, c, b.popFront())
}

func TestSchedulerHighestReadyPriority(t *testing.T) {
	s := newScheduler(32, newHostPort(0))
	_, ok := s.highestReadyPriority()
	require.False(t, ok)

	low := &taskControlBlock{name: "low", priority: 20, stats: newTaskStats()}
	high := &taskControlBlock{name: "high", priority: 2, stats: newTaskStats()}
	s.markReady(low)
	s.markReady(high)

	p, ok := s.highestReadyPriority()
	require.True(t, ok)
	require.Equal(t, 2, p)
}

func TestSchedulerPickNextPrefersHighestPriority(t *testing.T) {
	s := newScheduler(32, newHostPort(0))
	s.idle = &taskControlBlock{name: "idle", priority: 31, stats: newTaskStats()}

	low := &taskControlBlock{name: "low", priority: 10, stats: newTaskStats()}
	high := &taskControlBlock{name: "high", priority: 1, stats: newTaskStats()}
	s.markReady(low)
	s.markReady(high)

	next := s.pickNext(nil, false)
	require.Same(t, high, next)

	next = s.pickNext(nil, false)
	require.Same(t, low, next)

	// Ready set now empty: falls back to idle.
	next = s.pickNext(nil, false)
	require.Same(t, s.idle, next)
}

func TestSchedulerPickNextRoundRobinsEqualPriority(t *testing.T) {
	s := newScheduler(32, newHostPort(0))
	s.idle = &taskControlBlock{name: "idle", priority: 31, stats: newTaskStats()}

	a := &taskControlBlock{name: "a", priority: 5, stats: newTaskStats()}
	c := &taskControlBlock{name: "c", priority: 5, stats: newTaskStats()}
	s.markReady(c)

	// a is currently running (so not in the ready set) and remains
	// runnable: it should be requeued behind c, giving c the CPU next.
	next := s.pickNext(a, true)
	require.Same(t, c, next)
}

func TestSchedulerLockDefersSwitch(t *testing.T) {
	s := newScheduler(32, newHostPort(0))
	s.idle = &taskControlBlock{name: "idle", priority: 31, stats: newTaskStats()}
	running := &taskControlBlock{name: "running", priority: 5, stats: newTaskStats()}
	high := &taskControlBlock{name: "high", priority: 0, stats: newTaskStats()}
	s.markReady(high)

	s.lock()
	next := s.pickNext(running, true)
	require.Same(t, running, next, "locked scheduler must not switch away from the caller")
	require.True(t, s.switchPending)

	should := s.unlock()
	require.True(t, should, "a deferred switch must be reported once the lock is released")
}

func TestSchedulerRemoveReadyClearsBitmap(t *testing.T) {
	s := newScheduler(32, newHostPort(0))
	t1 := &taskControlBlock{name: "t1", priority: 4, stats: newTaskStats()}
	s.markReady(t1)
	require.NotZero(t, s.readyMask)
	s.removeReady(t1)
	require.Zero(t, s.readyMask)
	require.False(t, t1.inReadySet)
}
