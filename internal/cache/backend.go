package cache

import (
	"context"

	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
)

// Backend puts a RouteCache in front of a storage backend. Loads are served
// from the cache when possible; saves write through.
type Backend struct {
	storage.Backend
	routes *RouteCache
}

// WithRoutes wraps b with c.
func WithRoutes(b storage.Backend, c *RouteCache) *Backend {
	return &Backend{Backend: b, routes: c}
}

// Unwrap returns the wrapped backend.
func (b *Backend) Unwrap() storage.Backend {
	return b.Backend
}

func (b *Backend) LoadRoute(ctx context.Context, key core.ShipmentKey) (*core.Route, error) {
	if r, ok := b.routes.Get(key); ok {
		return r, nil
	}
	r, err := b.Backend.LoadRoute(ctx, key)
	if err != nil {
		return nil, err
	}
	b.routes.Set(r)
	return r, nil
}

func (b *Backend) SaveRoute(ctx context.Context, r *core.Route) error {
	if err := b.Backend.SaveRoute(ctx, r); err != nil {
		b.routes.Delete(r.Key)
		return err
	}
	b.routes.Set(r)
	return nil
}
