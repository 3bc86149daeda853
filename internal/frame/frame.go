// Package frame schedules per-frame and delayed callbacks on a single
// cooperative thread. Every callback registered on a Scheduler runs on that
// thread, so the components driven by it need no locking of their own.
package frame

import (
	"errors"
	"time"
)

// DefaultInterval is the frame cadence of a 60 Hz display.
const DefaultInterval = 16 * time.Millisecond

// ErrNotRunning is returned when work is posted to a loop that is not running.
var ErrNotRunning = errors.New("frame loop is not running")

// FrameFunc is invoked once with the frame timestamp.
type FrameFunc func(now time.Time)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler is the timing primitive the animation is built on.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// RequestFrame runs fn once on the next frame.
	RequestFrame(fn FrameFunc) Handle

	// AfterFunc runs fn once after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Handle

	// Cancel drops a pending callback. It reports whether one was dropped.
	Cancel(h Handle) bool

	// Pending returns the number of callbacks that have not run yet.
	Pending() int
}

// Runner executes fn on the scheduling thread and waits for it to return.
type Runner interface {
	Do(fn func()) error
}

type entry struct {
	h     Handle
	at    time.Time
	frame FrameFunc
	timer func()
	dead  bool
}

// registry keeps frame and timer callbacks. It is owned by the scheduling
// thread and is not safe for concurrent use.
type registry struct {
	next   Handle
	live   map[Handle]*entry
	frames []*entry
	timers []*entry // ordered by deadline, then by handle
}

func newRegistry() *registry {
	return &registry{live: make(map[Handle]*entry)}
}

func (r *registry) addFrame(fn FrameFunc) Handle {
	r.next++
	e := &entry{h: r.next, frame: fn}
	r.live[e.h] = e
	r.frames = append(r.frames, e)
	return e.h
}

func (r *registry) addTimer(at time.Time, fn func()) Handle {
	r.next++
	e := &entry{h: r.next, at: at, timer: fn}
	r.live[e.h] = e

	i := len(r.timers)
	for i > 0 && r.timers[i-1].at.After(at) {
		i--
	}
	r.timers = append(r.timers, nil)
	copy(r.timers[i+1:], r.timers[i:])
	r.timers[i] = e
	return e.h
}

func (r *registry) cancel(h Handle) bool {
	e, ok := r.live[h]
	if !ok {
		return false
	}
	e.dead = true
	delete(r.live, h)
	return true
}

func (r *registry) pending() int {
	return len(r.live)
}

// hasFrames reports whether a live frame callback is waiting.
func (r *registry) hasFrames() bool {
	for _, e := range r.frames {
		if !e.dead {
			return true
		}
	}
	return false
}

// runFrames runs the callbacks requested before this frame. Callbacks
// requested while it runs wait for the next frame.
func (r *registry) runFrames(now time.Time) {
	batch := r.frames
	r.frames = nil
	for _, e := range batch {
		if e.dead {
			continue
		}
		e.dead = true
		delete(r.live, e.h)
		e.frame(now)
	}
}

// nextDeadline returns the earliest live timer deadline.
func (r *registry) nextDeadline() (time.Time, bool) {
	r.pruneTimers()
	if len(r.timers) == 0 {
		return time.Time{}, false
	}
	return r.timers[0].at, true
}

// fireDue runs every timer whose deadline is not after now, including
// timers that earlier callbacks schedule as already due.
func (r *registry) fireDue(now time.Time) {
	for {
		r.pruneTimers()
		if len(r.timers) == 0 || r.timers[0].at.After(now) {
			return
		}
		e := r.timers[0]
		r.timers = r.timers[1:]
		e.dead = true
		delete(r.live, e.h)
		e.timer()
	}
}

func (r *registry) pruneTimers() {
	for len(r.timers) > 0 && r.timers[0].dead {
		r.timers = r.timers[1:]
	}
}
