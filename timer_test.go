package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerCreateRejectsBadParams(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTimer("t", 0, true, func(TimerID) {})
	require.Equal(t, InvalidParam, KindOf(err))
	_, err = k.CreateTimer("t", time.Millisecond, true, nil)
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestOneShotTimerFiresOnceAfterPeriod(t *testing.T) {
	k := newTestKernel(t)
	fired := make(chan TimerID, 4)
	id, err := k.CreateTimer("once", 20*time.Millisecond, true, func(id TimerID) {
		fired <- id
	})
	require.NoError(t, err)
	require.NoError(t, k.StartTimer(id))

	select {
	case got := <-fired:
		require.Equal(t, id, got)
	case <-time.After(time.Second):
		t.Fatal("one-shot timer never fired")
	}

	select {
	case <-fired:
		t.Fatal("one-shot timer fired more than once")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPeriodicTimerReloadsAutomatically(t *testing.T) {
	k := newTestKernel(t)
	fired := make(chan TimerID, 4)
	id, err := k.CreateTimer("periodic", 15*time.Millisecond, false, func(id TimerID) {
		fired <- id
	})
	require.NoError(t, err)
	require.NoError(t, k.StartTimer(id))

	for i := 0; i < 3; i++ {
		select {
		case got := <-fired:
			require.Equal(t, id, got)
		case <-time.After(time.Second):
			t.Fatalf("periodic timer did not fire a %d-th time", i+1)
		}
	}
	require.NoError(t, k.StopTimer(id))
}

func TestStopTimerPreventsFiring(t *testing.T) {
	k := newTestKernel(t)
	fired := make(chan TimerID, 1)
	id, err := k.CreateTimer("stoppable", 20*time.Millisecond, true, func(id TimerID) {
		fired <- id
	})
	require.NoError(t, err)
	require.NoError(t, k.StartTimer(id))
	require.NoError(t, k.StopTimer(id))

	select {
	case <-fired:
		t.Fatal("stopped timer fired anyway")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSetTimerPeriodRearmsActiveTimer(t *testing.T) {
	k := newTestKernel(t)
	fired := make(chan time.Time, 1)
	id, err := k.CreateTimer("t", time.Hour, true, func(TimerID) {
		fired <- time.Now()
	})
	require.NoError(t, err)
	require.NoError(t, k.StartTimer(id))

	start := time.Now()
	require.NoError(t, k.SetTimerPeriod(id, 15*time.Millisecond))

	select {
	case at := <-fired:
		require.WithinDuration(t, start, at, 200*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timer never rearmed to the shorter period")
	}
}

func TestDeleteTimerStopsFutureFires(t *testing.T) {
	k := newTestKernel(t)
	fired := make(chan TimerID, 1)
	id, err := k.CreateTimer("t", 20*time.Millisecond, true, func(id TimerID) {
		fired <- id
	})
	require.NoError(t, err)
	require.NoError(t, k.StartTimer(id))
	require.NoError(t, k.DeleteTimer(id))

	select {
	case <-fired:
		t.Fatal("deleted timer fired anyway")
	case <-time.After(60 * time.Millisecond):
	}
}
