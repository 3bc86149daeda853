// Package playback drives the looping route animation: it turns a route into
// a timed sequence of points, moves a marker through it and keeps the side
// panel in step.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/cargotrack/routeplay/internal/geo"
	"github.com/cargotrack/routeplay/pkg/core"
)

var (
	// ErrEmptyRoute is returned for a route without flights or a context
	// without points.
	ErrEmptyRoute = errors.New("route has no animation points")
	// ErrInvalidDuration is returned for a leg duration that is not positive.
	ErrInvalidDuration = errors.New("leg duration must be positive")
)

// Durations are the animated travel times per leg kind.
type Durations struct {
	Ground time.Duration
	Air    time.Duration
}

// DefaultDurations returns 3s per ground leg and 8s per flight.
func DefaultDurations() Durations {
	return Durations{
		Ground: 3 * time.Second,
		Air:    8 * time.Second,
	}
}

// Context is the animation sequence of one route and the index of the
// point the marker last reached.
type Context struct {
	Route        *core.Route
	Points       []core.AnimatedPoint
	CurrentIndex int
}

// BuildContext lays out the points of a route: the origin, the first
// airport by road, every flight destination by air, and the final
// destination by road.
func BuildContext(route *core.Route, d Durations) (*Context, error) {
	if route == nil || len(route.Flights) == 0 {
		return nil, ErrEmptyRoute
	}
	if d.Ground <= 0 || d.Air <= 0 {
		return nil, fmt.Errorf("%w: ground %v, air %v", ErrInvalidDuration, d.Ground, d.Air)
	}

	points := make([]core.AnimatedPoint, 0, len(route.Flights)+3)
	points = append(points,
		core.AnimatedPoint{Position: route.Origin.Position, Kind: core.LegGround, FlightIndex: core.NoFlight},
		core.AnimatedPoint{Position: route.Flights[0].Origin.Position, Duration: d.Ground, Kind: core.LegGround, FlightIndex: core.NoFlight},
	)
	for i, f := range route.Flights {
		points = append(points, core.AnimatedPoint{
			Position:    f.Destination.Position,
			Duration:    d.Air,
			Kind:        core.LegAir,
			FlightIndex: i,
		})
	}
	points = append(points, core.AnimatedPoint{
		Position:    route.Destination.Position,
		Duration:    d.Ground,
		Kind:        core.LegGround,
		FlightIndex: core.NoFlight,
	})

	c, err := NewContext(points)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", route.Key, err)
	}
	c.Route = route
	return c, nil
}

// NewContext validates a hand-built point sequence.
func NewContext(points []core.AnimatedPoint) (*Context, error) {
	if len(points) == 0 {
		return nil, ErrEmptyRoute
	}
	for i, p := range points {
		if err := geo.Validate(p.Position); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		if i > 0 && p.Duration <= 0 {
			return nil, fmt.Errorf("%w: point %d has %v", ErrInvalidDuration, i, p.Duration)
		}
	}
	return &Context{Points: append([]core.AnimatedPoint(nil), points...)}, nil
}

// Current returns the point the marker last reached.
func (c *Context) Current() core.AnimatedPoint {
	return c.Points[c.CurrentIndex]
}

// AtLast reports whether the marker reached the final point.
func (c *Context) AtLast() bool {
	return c.CurrentIndex >= len(c.Points)-1
}

// Reset rewinds to the first point.
func (c *Context) Reset() {
	c.CurrentIndex = 0
}

// TotalDuration is the travel time of one full pass, pauses excluded.
func (c *Context) TotalDuration() time.Duration {
	var total time.Duration
	for _, p := range c.Points {
		total += p.Duration
	}
	return total
}
