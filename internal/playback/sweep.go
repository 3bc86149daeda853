package playback

import (
	"time"

	"github.com/cargotrack/routeplay/internal/frame"
)

// Sweep reports the progress fraction of a timed interval once per frame,
// independently of the marker. It drives the sidebar icon of a flight card.
type Sweep struct {
	sched      frame.Scheduler
	total      time.Duration
	onProgress func(fraction float64)

	start    time.Time
	pausedAt time.Time
	paused   bool
	done     bool
	handle   frame.Handle
}

// RunSweep reports 0 immediately and then min(elapsed/total, 1) on every
// frame, stopping after it has reported 1. A non-positive total reports 1
// once.
func RunSweep(sched frame.Scheduler, total time.Duration, onProgress func(fraction float64)) *Sweep {
	s := &Sweep{
		sched:      sched,
		total:      total,
		onProgress: onProgress,
		start:      sched.Now(),
	}
	if total <= 0 {
		s.done = true
		onProgress(1)
		return s
	}
	onProgress(0)
	s.handle = sched.RequestFrame(s.tick)
	return s
}

func (s *Sweep) tick(now time.Time) {
	s.handle = 0
	if s.done || s.paused {
		return
	}
	f := min(float64(now.Sub(s.start))/float64(s.total), 1)
	s.onProgress(f)
	if f >= 1 {
		s.done = true
		return
	}
	s.handle = s.sched.RequestFrame(s.tick)
}

// Pause stops reporting until Resume.
func (s *Sweep) Pause() {
	if s.done || s.paused {
		return
	}
	s.paused = true
	s.pausedAt = s.sched.Now()
	s.cancel()
}

// Resume continues from the fraction reached at Pause.
func (s *Sweep) Resume() {
	if s.done || !s.paused {
		return
	}
	s.paused = false
	s.start = s.start.Add(s.sched.Now().Sub(s.pausedAt))
	s.handle = s.sched.RequestFrame(s.tick)
}

// Cancel stops the sweep for good.
func (s *Sweep) Cancel() {
	s.done = true
	s.cancel()
}

// Done reports whether the sweep finished or was cancelled.
func (s *Sweep) Done() bool {
	return s.done
}

func (s *Sweep) cancel() {
	if s.handle != 0 {
		s.sched.Cancel(s.handle)
		s.handle = 0
	}
}
