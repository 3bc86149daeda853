// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
)

// RouteRecord is a stored route and when it was saved.
type RouteRecord struct {
	Route   core.Route `json:"route"`
	SavedAt time.Time  `json:"savedAt"`
}

// Backend keeps routes in memory and, when OutputDir is set, mirrors each
// one to a JSON file so they survive a restart.
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	routes map[core.ShipmentKey]*RouteRecord
	mu     sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		now:    time.Now,
		routes: make(map[core.ShipmentKey]*RouteRecord),
	}
}

// Init creates the output directory and loads the routes already in it.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	records, err := b.readDir()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range records {
		b.routes[rec.Route.Key] = rec
	}
	return nil
}

// Close is a no-op; every save is already on disk.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) SaveRoute(_ context.Context, r *core.Route) error {
	if r == nil || r.Key.IsZero() {
		return fmt.Errorf("route has no shipment key")
	}
	rec := &RouteRecord{Route: cloneRoute(r), SavedAt: b.now()}

	if b.cfg.OutputDir != "" {
		if err := b.writeRecord(rec); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[r.Key] = rec
	return nil
}

func (b *Backend) LoadRoute(_ context.Context, key core.ShipmentKey) (*core.Route, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.routes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrRouteNotFound, key)
	}
	r := cloneRoute(&rec.Route)
	return &r, nil
}

func (b *Backend) ListRoutes(_ context.Context) ([]core.ShipmentKey, error) {
	b.mu.RLock()
	recs := make([]*RouteRecord, 0, len(b.routes))
	for _, rec := range b.routes {
		recs = append(recs, rec)
	}
	b.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].SavedAt.Equal(recs[j].SavedAt) {
			return recs[i].SavedAt.After(recs[j].SavedAt)
		}
		return recs[i].Route.Key.String() < recs[j].Route.Key.String()
	})

	keys := make([]core.ShipmentKey, len(recs))
	for i, rec := range recs {
		keys[i] = rec.Route.Key
	}
	return keys, nil
}

func cloneRoute(r *core.Route) core.Route {
	out := *r
	out.Flights = append([]core.FlightLeg(nil), r.Flights...)
	return out
}
