// Package apistore implements storage.Backend on the planning dashboard:
// routes are fetched from its route endpoint and saved by confirming them as
// the shipment's plan.
package apistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/cargotrack/routeplay/internal/api"
	"github.com/cargotrack/routeplay/internal/parser"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
)

// Backend talks to the dashboard. The dashboard has no listing endpoint, so
// ListRoutes returns the keys this backend has loaded or saved.
type Backend struct {
	client *api.Client
	parser *parser.Parser
	log    *slog.Logger

	mu   sync.Mutex
	seen []core.ShipmentKey // most recent first
}

// New creates a backend on client. Routes are parsed with p.
func New(client *api.Client, p *parser.Parser, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{client: client, parser: p, log: logger}
}

// Init checks that the dashboard answers.
func (b *Backend) Init() error {
	if err := b.client.Healthcheck(); err != nil {
		return fmt.Errorf("dashboard unreachable: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) LoadRoute(ctx context.Context, key core.ShipmentKey) (*core.Route, error) {
	body, err := b.client.FetchRoute(ctx, key)
	if errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRouteNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	var raw parser.RawRoute
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("route %s: failed to decode: %w", key, err)
	}
	// older dashboards omit the key fields from the route document
	if strings.TrimSpace(raw.Number) == "" {
		raw.Branch, raw.Series, raw.Number = key.Branch, key.Series, key.Number
	}
	r, err := b.parser.Convert(raw)
	if err != nil {
		return nil, err
	}
	b.touch(key)
	return r, nil
}

func (b *Backend) SaveRoute(ctx context.Context, r *core.Route) error {
	_, err := b.ConfirmRoute(ctx, r)
	return err
}

// ConfirmRoute posts r as the shipment's plan and returns the plan id.
func (b *Backend) ConfirmRoute(ctx context.Context, r *core.Route) (string, error) {
	if r == nil || r.Key.IsZero() {
		return "", errors.New("route has no shipment key")
	}
	id, err := b.client.SavePlan(ctx, parser.PlanPayload(r))
	if err != nil {
		return "", fmt.Errorf("confirm %s: %w", r.Key, err)
	}
	b.log.Info("Plan confirmed", "route", r.Key.String(), "planId", id)
	b.touch(r.Key)
	return id, nil
}

func (b *Backend) ListRoutes(_ context.Context) ([]core.ShipmentKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.seen), nil
}

func (b *Backend) touch(key core.ShipmentKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = slices.DeleteFunc(b.seen, func(k core.ShipmentKey) bool { return k == key })
	b.seen = slices.Insert(b.seen, 0, key)
}
