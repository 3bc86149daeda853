package frame

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()

	l := NewLoop(5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	return l
}

func TestLoop_PostBeforeRun(t *testing.T) {
	l := NewLoop(0, nil)

	assert.ErrorIs(t, l.Post(func() {}), ErrNotRunning)
	assert.ErrorIs(t, l.Do(func() {}), ErrNotRunning)
}

func TestLoop_DoRunsOnLoop(t *testing.T) {
	l := startLoop(t)

	var pending int
	err := l.Do(func() {
		l.AfterFunc(time.Hour, func() {})
		pending = l.Pending()
	})

	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestLoop_FramesAndTimers(t *testing.T) {
	l := startLoop(t)

	var frames atomic.Int32
	var fired atomic.Bool

	require.NoError(t, l.Do(func() {
		var tick FrameFunc
		tick = func(time.Time) {
			if frames.Add(1) < 3 {
				l.RequestFrame(tick)
			}
		}
		l.RequestFrame(tick)
		l.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	}))

	assert.Eventually(t, func() bool { return frames.Load() == 3 }, time.Second, time.Millisecond)
	assert.Eventually(t, fired.Load, time.Second, time.Millisecond)
}

func TestLoop_CancelTimer(t *testing.T) {
	l := startLoop(t)

	var fired atomic.Bool
	require.NoError(t, l.Do(func() {
		h := l.AfterFunc(10*time.Millisecond, func() { fired.Store(true) })
		l.Cancel(h)
	}))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Running())
}
