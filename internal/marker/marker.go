// Package marker animates a map marker along a timed path of waypoints.
package marker

import (
	"errors"
	"fmt"
	"time"

	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/geo"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/google/uuid"
)

var (
	// ErrEmptyPath is returned when a marker is created without waypoints.
	ErrEmptyPath = errors.New("marker path has no waypoints")
	// ErrInvalidDuration is returned for a segment duration that is not positive.
	ErrInvalidDuration = errors.New("segment duration must be positive")
	// ErrIllegalTransition is returned when a control is not valid in the current state.
	ErrIllegalTransition = errors.New("illegal marker state transition")
	// ErrDisposed is returned by controls called after Dispose.
	ErrDisposed = errors.New("marker disposed")
)

// State is the lifecycle state of a marker.
type State int

const (
	Idle State = iota
	Running
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Layer receives the marker's displayed position on every change.
type Layer interface {
	SetPosition(pos core.GeoCoordinate)
}

// Option configures a Marker.
type Option func(*Marker)

// WithID sets the marker id. A random id is used otherwise.
func WithID(id string) Option {
	return func(m *Marker) {
		m.id = id
	}
}

// WithLayer attaches the map layer that renders the marker.
func WithLayer(l Layer) Option {
	return func(m *Marker) {
		m.layer = l
	}
}

// Marker moves through its path one segment at a time. All methods must be
// called on the scheduler's thread.
type Marker struct {
	id    string
	sched frame.Scheduler
	layer Layer

	path     []core.Waypoint
	state    State
	position core.GeoCoordinate
	disposed bool

	// current interpolation line
	segment      int
	lineStart    core.GeoCoordinate
	lineDuration time.Duration
	segStart     time.Time

	runStart     time.Time
	pausedAt     time.Time
	pauseElapsed time.Duration
	pausedTotal  time.Duration
	run          uint64

	frame     frame.Handle
	listeners map[EventType][]*listener
}

// New creates an idle marker at the first waypoint of path.
func New(sched frame.Scheduler, path []core.Waypoint, opts ...Option) (*Marker, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	m := &Marker{
		id:        uuid.NewString(),
		sched:     sched,
		path:      append([]core.Waypoint(nil), path...),
		state:     Idle,
		listeners: make(map[EventType][]*listener),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.setPosition(path[0].Position)
	return m, nil
}

func validatePath(path []core.Waypoint) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	for i := 1; i < len(path); i++ {
		if path[i].ArrivalDuration <= 0 {
			return fmt.Errorf("%w: segment %d has %v", ErrInvalidDuration, i-1, path[i].ArrivalDuration)
		}
	}
	return nil
}

// ID returns the marker id.
func (m *Marker) ID() string { return m.id }

// State returns the lifecycle state.
func (m *Marker) State() State { return m.state }

// Position returns the displayed position.
func (m *Marker) Position() core.GeoCoordinate { return m.position }

// Segment returns the index of the segment being travelled.
func (m *Marker) Segment() int { return m.segment }

// Path returns a copy of the waypoints.
func (m *Marker) Path() []core.Waypoint {
	return append([]core.Waypoint(nil), m.path...)
}

// Start begins a run from the first waypoint. It resumes a paused marker and
// does nothing while running. An ended marker starts over.
func (m *Marker) Start() error {
	if m.disposed {
		return ErrDisposed
	}
	switch m.state {
	case Running:
		return nil
	case Paused:
		return m.Resume()
	}

	now := m.sched.Now()
	m.run++
	run := m.run
	m.runStart = now
	m.pausedTotal = 0
	m.segment = 0
	m.setPosition(m.path[0].Position)
	m.state = Running
	if len(m.path) > 1 {
		m.loadSegment(0, now)
	}
	m.emit(Event{Type: EventStart, Position: m.position})

	if m.run != run || m.state != Running {
		// a listener took over
		return nil
	}
	if len(m.path) == 1 {
		m.finish(now)
		return nil
	}

	m.frame = m.sched.RequestFrame(m.tick)
	return nil
}

// Pause freezes the marker at its interpolated position.
func (m *Marker) Pause() error {
	if m.disposed {
		return ErrDisposed
	}
	if m.state != Running {
		return fmt.Errorf("%w: pause from %s", ErrIllegalTransition, m.state)
	}

	now := m.sched.Now()
	m.cancelFrame()
	if m.catchUp(now) {
		// the run completed while catching up
		return nil
	}

	m.pausedAt = now
	m.pauseElapsed = now.Sub(m.segStart)
	m.state = Paused
	m.emit(Event{Type: EventPause, Elapsed: m.elapsed(now), Position: m.position})
	return nil
}

// Resume continues a paused run from the frozen position, keeping the time
// that was left on the current segment.
func (m *Marker) Resume() error {
	if m.disposed {
		return ErrDisposed
	}
	if m.state != Paused {
		return fmt.Errorf("%w: resume from %s", ErrIllegalTransition, m.state)
	}

	now := m.sched.Now()
	m.pausedTotal += now.Sub(m.pausedAt)
	m.lineStart = m.position
	m.lineDuration -= m.pauseElapsed
	m.segStart = now
	m.state = Running
	m.emit(Event{Type: EventResume, Elapsed: m.elapsed(now), Position: m.position})

	if m.state == Running {
		m.frame = m.sched.RequestFrame(m.tick)
	}
	return nil
}

// Stop ends the run. With snap set the marker jumps to the final waypoint.
func (m *Marker) Stop(snap bool) error {
	if m.disposed {
		return ErrDisposed
	}
	if m.state == Ended {
		return fmt.Errorf("%w: stop from %s", ErrIllegalTransition, m.state)
	}

	now := m.sched.Now()
	m.cancelFrame()
	if m.state == Paused {
		m.pausedTotal += now.Sub(m.pausedAt)
	}
	if snap {
		m.setPosition(m.path[len(m.path)-1].Position)
	}
	m.finish(now)
	return nil
}

// MoveTo starts a fresh run from the displayed position to pos, abandoning
// any run in progress.
func (m *Marker) MoveTo(pos core.GeoCoordinate, d time.Duration) error {
	if m.disposed {
		return ErrDisposed
	}
	if d <= 0 {
		return fmt.Errorf("%w: move to %v over %v", ErrInvalidDuration, pos, d)
	}
	if err := geo.Validate(pos); err != nil {
		return fmt.Errorf("move to %v: %w", pos, err)
	}

	m.cancelFrame()
	m.path = []core.Waypoint{
		{Position: m.position},
		{Position: pos, ArrivalDuration: d},
	}
	m.state = Idle
	return m.Start()
}

// AddWaypoint appends a segment to the path. A running marker travels it
// after the current last waypoint.
func (m *Marker) AddWaypoint(pos core.GeoCoordinate, d time.Duration) error {
	if m.disposed {
		return ErrDisposed
	}
	if d <= 0 {
		return fmt.Errorf("%w: waypoint %v over %v", ErrInvalidDuration, pos, d)
	}
	if err := geo.Validate(pos); err != nil {
		return fmt.Errorf("waypoint %v: %w", pos, err)
	}
	m.path = append(m.path, core.Waypoint{Position: pos, ArrivalDuration: d})
	return nil
}

// Dispose cancels scheduling and drops every listener without emitting.
func (m *Marker) Dispose() {
	m.cancelFrame()
	m.listeners = make(map[EventType][]*listener)
	m.disposed = true
	m.run++
}

func (m *Marker) tick(now time.Time) {
	m.frame = 0
	if m.state != Running {
		return
	}
	if m.catchUp(now) {
		return
	}
	m.frame = m.sched.RequestFrame(m.tick)
}

// catchUp moves the marker to where it should be at now, crossing as many
// segment boundaries as needed and carrying the overshoot into the next
// segment. It reports whether the run ended.
func (m *Marker) catchUp(now time.Time) bool {
	if len(m.path) < 2 {
		m.finish(now)
		return true
	}
	elapsed := now.Sub(m.segStart)
	for elapsed >= m.lineDuration {
		elapsed -= m.lineDuration
		end := m.segStart.Add(m.lineDuration)
		m.setPosition(m.path[m.segment+1].Position)

		if m.segment+1 >= len(m.path)-1 {
			m.finish(now)
			return true
		}
		m.loadSegment(m.segment+1, end)
	}

	m.setPosition(geo.Interpolate(m.lineStart, m.path[m.segment+1].Position, m.lineDuration, elapsed))
	return false
}

func (m *Marker) loadSegment(i int, start time.Time) {
	m.segment = i
	m.lineStart = m.path[i].Position
	m.lineDuration = m.path[i+1].ArrivalDuration
	m.segStart = start
}

func (m *Marker) finish(now time.Time) {
	m.state = Ended
	m.emit(Event{Type: EventEnd, Elapsed: m.elapsed(now), Position: m.position})
}

func (m *Marker) elapsed(now time.Time) time.Duration {
	if m.runStart.IsZero() {
		return 0
	}
	if m.state == Paused {
		now = m.pausedAt
	}
	return now.Sub(m.runStart) - m.pausedTotal
}

func (m *Marker) cancelFrame() {
	if m.frame != 0 {
		m.sched.Cancel(m.frame)
		m.frame = 0
	}
}

func (m *Marker) setPosition(pos core.GeoCoordinate) {
	m.position = pos
	if m.layer != nil {
		m.layer.SetPosition(pos)
	}
}
