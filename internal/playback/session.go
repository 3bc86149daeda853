package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/marker"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNotPlaying is returned by Pause when nothing is playing.
	ErrNotPlaying = errors.New("playback is not running")
	// ErrNotPaused is returned by Resume when playback is not paused.
	ErrNotPaused = errors.New("playback is not paused")
)

// Phase is what the session is doing right now.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseMoving   Phase = "moving"
	PhaseDwell    Phase = "dwell"
	PhaseLooping  Phase = "looping"
	PhasePaused   Phase = "paused"
	PhaseStopped  Phase = "stopped"
)

// Config holds the timing and side panel values of a session.
type Config struct {
	StartDelay   time.Duration
	SegmentPause time.Duration
	LoopDelay    time.Duration
	Durations    Durations

	PickupProgress   int
	AirProgress      int
	DeliveryProgress int
}

// DefaultConfig matches the editor page: 1.5s before the first pass, half a
// second at every stop and 4s at the destination before looping.
func DefaultConfig() Config {
	return Config{
		StartDelay:       1500 * time.Millisecond,
		SegmentPause:     500 * time.Millisecond,
		LoopDelay:        4 * time.Second,
		Durations:        DefaultDurations(),
		PickupProgress:   10,
		AirProgress:      50,
		DeliveryProgress: 100,
	}
}

// Status is a snapshot of a session, safe to read from any goroutine.
type Status struct {
	SessionID   string             `json:"sessionId"`
	Phase       Phase              `json:"phase"`
	Route       string             `json:"route,omitempty"`
	Index       int                `json:"index"`
	Total       int                `json:"total"`
	Loops       int                `json:"loops"`
	MarkerID    string             `json:"markerId,omitempty"`
	MarkerState string             `json:"markerState,omitempty"`
	Position    core.GeoCoordinate `json:"position"`
	Leg         string             `json:"leg,omitempty"`
	FlightIndex int                `json:"flightIndex"`
	LastError   string             `json:"lastError,omitempty"`
}

type pendingTimer struct {
	at time.Time
	fn func()
}

type frozenTimer struct {
	remaining time.Duration
	fn        func()
}

// Session plays one route at a time in an endless loop. Every method except
// Status must be called on the scheduler's thread.
type Session struct {
	id     string
	sched  frame.Scheduler
	disp   display.Display
	cfg    Config
	logger *slog.Logger

	pc          *Context
	marker      *marker.Marker
	sweep       *Sweep
	timers      map[frame.Handle]*pendingTimer
	frozen      []frozenTimer
	gen         uint64
	phase       Phase
	resumePhase Phase
	leg         core.AnimatedPoint
	loops       int
	lastErr     error

	mu     sync.Mutex
	status Status

	segmentsDone metric.Int64Counter
	loopsDone    metric.Int64Counter
}

// NewSession creates an idle session rendering to disp.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewSession(sched frame.Scheduler, disp display.Display, cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:     uuid.NewString(),
		sched:  sched,
		disp:   disp,
		cfg:    cfg,
		timers: make(map[frame.Handle]*pendingTimer),
		phase:  PhaseIdle,
		leg:    core.AnimatedPoint{FlightIndex: core.NoFlight},
	}
	s.logger = logger.With("session", s.id)

	m := meter()
	var err error

	s.segmentsDone, err = m.Int64Counter(
		"playback.segments.completed",
		metric.WithDescription("Total route legs the marker finished"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segments counter: %w", err)
	}

	s.loopsDone, err = m.Int64Counter(
		"playback.loops.completed",
		metric.WithDescription("Total full passes over a route"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loops counter: %w", err)
	}

	s.publish()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// PlayRoute builds the animation of route, draws its overlay and plays it.
func (s *Session) PlayRoute(route *core.Route) error {
	pc, err := BuildContext(route, s.cfg.Durations)
	if err != nil {
		s.fail(err)
		return err
	}
	overlay, err := display.BuildOverlay(route)
	if err != nil {
		s.fail(err)
		return err
	}
	s.disp.DrawRoute(overlay)
	return s.Play(pc)
}

// Play abandons the current cycle and starts looping over pc after the
// start delay.
func (s *Session) Play(pc *Context) error {
	if pc == nil || len(pc.Points) == 0 {
		s.fail(ErrEmptyRoute)
		return ErrEmptyRoute
	}

	s.cancelCycle()
	s.gen++
	gen := s.gen
	s.pc = pc
	s.pc.Reset()
	s.loops = 0
	s.lastErr = nil
	s.phase = PhaseStarting

	s.logger.Info("playback scheduled", "route", routeName(pc), "points", len(pc.Points), "delay", s.cfg.StartDelay)

	if s.cfg.StartDelay > 0 {
		s.after(s.cfg.StartDelay, func() { s.restart(gen) })
	} else {
		s.restart(gen)
	}
	s.publish()
	return nil
}

// Pause freezes the marker, the sweep and any pending stop or loop delay.
func (s *Session) Pause() error {
	switch s.phase {
	case PhaseIdle, PhaseStopped, PhasePaused:
		return fmt.Errorf("%w: phase %s", ErrNotPlaying, s.phase)
	}

	if s.marker != nil && s.marker.State() == marker.Running {
		if err := s.marker.Pause(); err != nil {
			return err
		}
	}
	if s.sweep != nil {
		s.sweep.Pause()
	}

	now := s.sched.Now()
	for h, t := range s.timers {
		s.sched.Cancel(h)
		s.frozen = append(s.frozen, frozenTimer{remaining: max(t.at.Sub(now), 0), fn: t.fn})
	}
	clear(s.timers)

	s.resumePhase = s.phase
	s.phase = PhasePaused
	s.logger.Info("playback paused", "index", s.pc.CurrentIndex)
	s.publish()
	return nil
}

// Resume continues a paused session where it left off.
func (s *Session) Resume() error {
	if s.phase != PhasePaused {
		return fmt.Errorf("%w: phase %s", ErrNotPaused, s.phase)
	}

	s.phase = s.resumePhase
	for _, t := range s.frozen {
		s.after(t.remaining, t.fn)
	}
	s.frozen = nil
	if s.sweep != nil {
		s.sweep.Resume()
	}
	if s.marker != nil && s.marker.State() == marker.Paused {
		if err := s.marker.Resume(); err != nil {
			return err
		}
	}

	s.logger.Info("playback resumed", "index", s.pc.CurrentIndex)
	s.publish()
	return nil
}

// Stop cancels everything scheduled and removes the marker.
func (s *Session) Stop() {
	s.cancelCycle()
	s.gen++
	s.disp.ResetSweeps()
	s.disp.ClearHighlight()
	s.phase = PhaseStopped
	s.logger.Info("playback stopped")
	s.publish()
}

// Status returns the latest snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// restart puts a fresh marker on the first point and starts the pass.
func (s *Session) restart(gen uint64) {
	if gen != s.gen {
		return
	}
	s.disp.ResetSweeps()
	s.disp.ClearHighlight()
	s.stopSweep()
	s.removeMarker()

	start := s.pc.Points[0].Position
	id := uuid.NewString()
	s.disp.AddMarker(id, start, display.GlyphVehicle)

	m, err := marker.New(s.sched, []core.Waypoint{{Position: start}},
		marker.WithID(id),
		marker.WithLayer(&sessionLayer{s: s, inner: display.LayerFor(s.disp, id)}),
	)
	if err != nil {
		s.disp.RemoveMarker(id)
		s.fail(err)
		return
	}
	m.On(marker.EventEnd, func(marker.Event) { s.arrived(gen) })
	s.marker = m

	s.pc.Reset()
	s.logger.Debug("pass started", "route", routeName(s.pc), "marker", id, "loop", s.loops)
	s.advance(gen)
}

// advance sends the marker to the point after the current one, or waits
// for the next pass once the destination is reached.
func (s *Session) advance(gen uint64) {
	if gen != s.gen {
		return
	}

	if s.pc.AtLast() {
		s.phase = PhaseLooping
		s.publish()
		s.after(s.cfg.LoopDelay, func() {
			if gen != s.gen {
				return
			}
			s.loops++
			s.loopsDone.Add(context.Background(), 1)
			s.disp.SetStep(display.StepPickup, 0)
			s.restart(gen)
		})
		return
	}

	idx := s.pc.CurrentIndex
	next := s.pc.Points[idx+1]
	id := s.marker.ID()

	if next.Kind == core.LegAir {
		s.disp.SetMarkerGlyph(id, display.GlyphAircraft)
		s.disp.SetStep(display.StepAir, s.cfg.AirProgress)
		s.startSweep(next.FlightIndex, next.Duration)
		s.disp.HighlightFlight(next.FlightIndex)
	} else {
		s.disp.SetMarkerGlyph(id, display.GlyphVehicle)
		s.disp.ClearHighlight()
		if idx == 0 {
			s.disp.SetStep(display.StepPickup, s.cfg.PickupProgress)
		} else {
			s.disp.SetStep(display.StepDelivery, s.cfg.DeliveryProgress)
		}
	}

	s.phase = PhaseMoving
	s.leg = next
	s.logger.Debug("leg started", "index", idx+1, "kind", next.Kind, "flight", next.FlightIndex, "duration", next.Duration)

	if err := s.marker.MoveTo(next.Position, next.Duration); err != nil {
		s.fail(fmt.Errorf("leg %d: %w", idx+1, err))
		return
	}
	s.publish()
}

// arrived runs when the marker reaches the point it was sent to.
func (s *Session) arrived(gen uint64) {
	if gen != s.gen {
		return
	}
	s.segmentsDone.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", s.leg.Kind.String())))

	s.phase = PhaseDwell
	s.publish()
	s.after(s.cfg.SegmentPause, func() {
		if gen != s.gen {
			return
		}
		s.pc.CurrentIndex++
		s.advance(gen)
	})
}

func (s *Session) startSweep(flightIndex int, d time.Duration) {
	s.stopSweep()
	if !s.disp.HasElement(display.PlaneIconID(flightIndex)) {
		return
	}
	s.sweep = RunSweep(s.sched, d, func(f float64) {
		s.disp.SetSweep(flightIndex, f)
	})
}

func (s *Session) stopSweep() {
	if s.sweep != nil {
		s.sweep.Cancel()
		s.sweep = nil
	}
}

func (s *Session) removeMarker() {
	if s.marker == nil {
		return
	}
	s.marker.Dispose()
	s.disp.RemoveMarker(s.marker.ID())
	s.marker = nil
}

// after schedules fn and tracks it so the cycle can be cancelled or paused.
func (s *Session) after(d time.Duration, fn func()) {
	var h frame.Handle
	h = s.sched.AfterFunc(d, func() {
		delete(s.timers, h)
		fn()
	})
	s.timers[h] = &pendingTimer{at: s.sched.Now().Add(d), fn: fn}
}

func (s *Session) cancelCycle() {
	for h := range s.timers {
		s.sched.Cancel(h)
	}
	clear(s.timers)
	s.frozen = nil
	s.stopSweep()
	s.removeMarker()
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.logger.Error("playback error", "error", err)
	s.disp.ReportError(err)
	s.publish()
}

func (s *Session) publish() {
	st := Status{
		SessionID:   s.id,
		Phase:       s.phase,
		FlightIndex: core.NoFlight,
		Loops:       s.loops,
	}
	if s.pc != nil {
		st.Route = routeName(s.pc)
		st.Index = s.pc.CurrentIndex
		st.Total = len(s.pc.Points)
	}
	if s.marker != nil {
		st.MarkerID = s.marker.ID()
		st.MarkerState = s.marker.State().String()
		st.Position = s.marker.Position()
	}
	if s.phase == PhaseMoving || s.phase == PhasePaused {
		st.Leg = s.leg.Kind.String()
		st.FlightIndex = s.leg.FlightIndex
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}

	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// sessionLayer mirrors the marker position into the status snapshot.
type sessionLayer struct {
	s     *Session
	inner *display.MarkerLayer
}

func (l *sessionLayer) SetPosition(pos core.GeoCoordinate) {
	l.inner.SetPosition(pos)
	l.s.mu.Lock()
	l.s.status.Position = pos
	l.s.mu.Unlock()
}

func routeName(pc *Context) string {
	if pc.Route == nil {
		return ""
	}
	return pc.Route.Key.String()
}
