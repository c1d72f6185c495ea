package actorloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimersAfterFiresOnce(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	fired := make(chan struct{}, 2)
	timers.After(20*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("alarm never fired")
	}

	select {
	case <-fired:
		t.Fatal("one-shot alarm fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimersEveryFiresRepeatedly(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	var mu sync.Mutex
	count := 0
	a := timers.Every(10*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 3
	}, time.Second, 5*time.Millisecond)

	timers.Cancel(a)
}

func TestTimersCancelPreventsFire(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	fired := make(chan struct{}, 1)
	a := timers.After(30*time.Millisecond, func() {
		fired <- struct{}{}
	})
	timers.Cancel(a)

	select {
	case <-fired:
		t.Fatal("cancelled alarm fired")
	case <-time.After(80 * time.Millisecond):
	}
	require.Equal(t, 0, timers.PendingAlarms())
}

func TestTimersOrdersBySoonest(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	var mu sync.Mutex
	var order []string

	timers.After(60*time.Millisecond, func() {
		mu.Lock()
		order = append(order, "late")
		mu.Unlock()
	})
	timers.After(10*time.Millisecond, func() {
		mu.Lock()
		order = append(order, "early")
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"early", "late"}, order)
}

func TestTimersPendingAlarmsCounts(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	timers.After(time.Hour, func() {})
	timers.After(time.Hour, func() {})
	require.Equal(t, 2, timers.PendingAlarms())
}

func TestTimerFireRunsOnControlGoroutine(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	defer l.Shutdown()

	timers := NewTimers(l)
	sawCtrl := make(chan bool, 1)
	timers.After(10*time.Millisecond, func() {
		sawCtrl <- l.isCtrlGoroutine()
	})

	select {
	case got := <-sawCtrl:
		require.True(t, got, "timer callback must run on the loop's control goroutine")
	case <-time.After(time.Second):
		t.Fatal("alarm never fired")
	}
}
