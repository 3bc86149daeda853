// Package storage defines where resolved routes are kept between playbacks.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
)

// ErrRouteNotFound is returned by LoadRoute for an unknown shipment.
var ErrRouteNotFound = errors.New("route not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveRoute stores r under r.Key, replacing an earlier copy.
	SaveRoute(ctx context.Context, r *core.Route) error
	LoadRoute(ctx context.Context, key core.ShipmentKey) (*core.Route, error)
	// ListRoutes returns the stored keys, most recently saved first.
	ListRoutes(ctx context.Context) ([]core.ShipmentKey, error)
}

// StatusSample is one periodic snapshot of a playback session.
type StatusSample struct {
	SessionID string
	Route     string
	Phase     string
	Index     int
	Total     int
	Loops     int
	Position  core.GeoCoordinate
	Time      time.Time
}

// StatusRecorder is an optional interface for backends that keep a history
// of playback status samples.
type StatusRecorder interface {
	RecordStatus(s StatusSample) error
}

// Planner is an optional interface for backends that can confirm a route as
// the shipment's plan and return the plan id.
type Planner interface {
	ConfirmRoute(ctx context.Context, r *core.Route) (string, error)
}

// As finds a backend implementing T, looking through wrappers that expose
// Unwrap() Backend, such as the route cache.
func As[T any](b Backend) (T, bool) {
	for b != nil {
		if t, ok := b.(T); ok {
			return t, true
		}
		u, ok := b.(interface{ Unwrap() Backend })
		if !ok {
			break
		}
		b = u.Unwrap()
	}
	var zero T
	return zero, false
}
