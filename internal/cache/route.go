package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
)

type routeEntry struct {
	route  core.Route
	stored time.Time
}

// RouteCache maps shipment keys to resolved routes. Entries older than the
// TTL are treated as missing; a zero TTL keeps them forever.
type RouteCache struct {
	mu     sync.RWMutex
	routes map[core.ShipmentKey]routeEntry
	ttl    time.Duration
	now    func() time.Time
}

// NewRouteCache creates a new RouteCache
func NewRouteCache(ttl time.Duration) *RouteCache {
	return &RouteCache{
		routes: make(map[core.ShipmentKey]routeEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns a copy of the cached route for key
func (c *RouteCache) Get(key core.ShipmentKey) (*core.Route, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.routes[key]
	if !ok || c.expired(e) {
		return nil, false
	}
	r := e.route
	r.Flights = slices.Clone(e.route.Flights)
	return &r, true
}

// Set stores a copy of r under its key
func (c *RouteCache) Set(r *core.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := routeEntry{route: *r, stored: c.now()}
	e.route.Flights = slices.Clone(r.Flights)
	c.routes[r.Key] = e
}

// Delete removes a route by key
func (c *RouteCache) Delete(key core.ShipmentKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.routes, key)
}

// Reset clears all routes from the cache
func (c *RouteCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = make(map[core.ShipmentKey]routeEntry)
}

// Len returns the number of entries, expired ones included.
func (c *RouteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.routes)
}

// Prune drops expired entries and returns how many were removed.
func (c *RouteCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.routes {
		if c.expired(e) {
			delete(c.routes, k)
			n++
		}
	}
	return n
}

func (c *RouteCache) expired(e routeEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.stored) > c.ttl
}
