package frame

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cargotrack/routeplay/internal/queue"
)

// Loop is a wall-clock Scheduler backed by a single goroutine. Scheduler
// methods must be called from that goroutine: from a callback or from a
// function handed to Do or Post.
type Loop struct {
	interval time.Duration
	reg      *registry
	tasks    *queue.Queue[func()]
	wake     chan struct{}
	done     chan struct{}
	running  atomic.Bool
	logger   *slog.Logger
}

// NewLoop creates a loop producing frames every interval.
func NewLoop(interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		interval: interval,
		reg:      newRegistry(),
		tasks:    queue.New[func()](),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// RequestFrame runs fn on the next frame tick.
func (l *Loop) RequestFrame(fn FrameFunc) Handle {
	return l.reg.addFrame(fn)
}

// AfterFunc runs fn on the loop goroutine after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	return l.reg.addTimer(time.Now().Add(d), fn)
}

// Cancel drops a pending callback.
func (l *Loop) Cancel(h Handle) bool {
	return l.reg.cancel(h)
}

// Pending returns the number of callbacks that have not run yet.
func (l *Loop) Pending() int {
	return l.reg.pending()
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Post queues fn to run on the loop goroutine without waiting for it.
func (l *Loop) Post(fn func()) error {
	if !l.running.Load() {
		return ErrNotRunning
	}
	l.tasks.Push(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop goroutine and waits for it to return. It must not
// be called from the loop goroutine itself.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrNotRunning
	}
}

// Run drives the loop until ctx is cancelled. It returns nil on
// cancellation, like an http.Server that was shut down.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer func() {
		l.running.Store(false)
		close(l.done)
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	l.logger.Debug("frame loop started", "interval", l.interval)

	for {
		l.runTasks()
		l.reg.fireDue(time.Now())

		var timerC <-chan time.Time
		if at, ok := l.reg.nextDeadline(); ok {
			timer.Reset(max(time.Until(at), 0))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("frame loop stopped", "pending", l.reg.pending())
			return nil
		case <-l.wake:
		case <-timerC:
		case <-ticker.C:
			if l.reg.hasFrames() {
				l.reg.runFrames(time.Now())
			}
		}
	}
}

func (l *Loop) runTasks() {
	for _, fn := range l.tasks.GetAndEmpty() {
		fn()
	}
}
