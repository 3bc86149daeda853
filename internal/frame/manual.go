package frame

import "time"

// Manual is a Scheduler driven by Advance instead of a wall clock. Frames
// are produced every interval of simulated time. It is meant for tests and
// offline rendering and is not safe for concurrent use.
type Manual struct {
	now      time.Time
	interval time.Duration
	reg      *registry
	frames   int
}

// NewManual creates a Manual scheduler starting at start with the given
// frame interval. A non-positive interval selects DefaultInterval.
func NewManual(start time.Time, interval time.Duration) *Manual {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manual{
		now:      start,
		interval: interval,
		reg:      newRegistry(),
	}
}

// Now returns the simulated time.
func (m *Manual) Now() time.Time {
	return m.now
}

// RequestFrame runs fn on the next simulated frame.
func (m *Manual) RequestFrame(fn FrameFunc) Handle {
	return m.reg.addFrame(fn)
}

// AfterFunc runs fn once the simulated clock has moved d past now.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	return m.reg.addTimer(m.now.Add(d), fn)
}

// Cancel drops a pending callback.
func (m *Manual) Cancel(h Handle) bool {
	return m.reg.cancel(h)
}

// Pending returns the number of callbacks that have not run yet.
func (m *Manual) Pending() int {
	return m.reg.pending()
}

// Frames returns how many frames have been produced so far.
func (m *Manual) Frames() int {
	return m.frames
}

// Do runs fn inline.
func (m *Manual) Do(fn func()) error {
	fn()
	return nil
}

// Advance moves the clock forward by d. Time advances in steps of one frame
// interval, cut short at timer deadlines and at the target, so that timers
// fire at their exact deadline and a frame is produced at the target time.
// At every step due timers fire first, then the pending frame callbacks run.
// Timers that frame callbacks schedule without delay fire in the same step.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.reg.fireDue(m.now)

	for m.now.Before(target) {
		next := m.now.Add(m.interval)
		if next.After(target) {
			next = target
		}
		if at, ok := m.reg.nextDeadline(); ok && at.After(m.now) && at.Before(next) {
			next = at
		}
		m.now = next

		m.reg.fireDue(m.now)
		if m.reg.hasFrames() {
			m.frames++
			m.reg.runFrames(m.now)
			m.reg.fireDue(m.now)
		}
	}
}
