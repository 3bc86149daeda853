package influx

import (
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
)

// Sink is a display.Display that records marker positions and step changes
// as InfluxDB points. It renders no elements.
type Sink struct {
	m        *Manager
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	route    string
	lastMove map[string]time.Time
}

var _ display.Display = (*Sink)(nil)

// NewSink writes through m. Moves of one marker closer together than
// interval are dropped.
func NewSink(m *Manager, interval time.Duration) *Sink {
	return &Sink{
		m:        m,
		interval: interval,
		now:      time.Now,
		lastMove: make(map[string]time.Time),
	}
}

func (s *Sink) write(bucket string, p *influxdb2_write.Point) {
	if err := s.m.WritePoint(bucket, p); err != nil {
		s.m.Logger.Debug().Err(err).Str("bucket", bucket).Msg("Dropping point")
	}
}

func (s *Sink) point(measurement string) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(measurement).SetTime(s.now())
	if s.route != "" {
		p.AddTag("route", s.route)
	}
	return p
}

// WriteStatus records one status sample.
func (s *Sink) WriteStatus(sample storage.StatusSample) error {
	return s.m.WritePoint(BucketStatus, StatusPoint(sample))
}

func (s *Sink) HasElement(string) bool { return false }

func (s *Sink) AddMarker(id string, pos core.GeoCoordinate, glyph display.Glyph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMove[id] = s.now()
	s.write(BucketPositions, s.point("marker_add").
		AddTag("marker", id).
		AddTag("glyph", string(glyph)).
		AddField("lat", pos.Lat).
		AddField("lon", pos.Lon))
}

func (s *Sink) MoveMarker(id string, pos core.GeoCoordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.lastMove[id]; ok && now.Sub(last) < s.interval {
		return
	}
	s.lastMove[id] = now
	s.write(BucketPositions, s.point("marker_move").
		AddTag("marker", id).
		AddField("lat", pos.Lat).
		AddField("lon", pos.Lon))
}

func (s *Sink) SetMarkerGlyph(id string, glyph display.Glyph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(BucketPositions, s.point("marker_glyph").
		AddTag("marker", id).
		AddField("glyph", string(glyph)))
}

func (s *Sink) RemoveMarker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastMove, id)
	s.write(BucketPositions, s.point("marker_remove").
		AddTag("marker", id).
		AddField("removed", true))
}

func (s *Sink) SetStep(step string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(BucketStatus, s.point("playback_step").
		AddTag("step", step).
		AddField("progress", progress))
}

func (s *Sink) SetSweep(int, float64) {}
func (s *Sink) ResetSweeps()          {}
func (s *Sink) HighlightFlight(int)   {}
func (s *Sink) ClearHighlight()       {}

func (s *Sink) DrawRoute(overlay core.Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = ""
	if !overlay.Key.IsZero() {
		s.route = overlay.Key.String()
	}
	s.write(BucketStatus, s.point("route_drawn").
		AddField("lines", len(overlay.Lines)).
		AddField("pins", len(overlay.Pins)))
}

func (s *Sink) ReportError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(BucketStatus, s.point("playback_error").
		AddField("message", err.Error()))
}
