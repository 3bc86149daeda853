// Package stream mirrors a playback session to browser pages over
// WebSocket and accepts commands from them.
package stream

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/cargotrack/routeplay/pkg/streaming"
)

const (
	sendChSize     = 1024
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// CommandFunc runs a command received from a client.
type CommandFunc func(ctx context.Context, command string, args []string) (any, error)

// Option configures a Hub.
type Option func(*Hub)

// WithSecret requires clients to pass ?secret=<secret>.
func WithSecret(secret string) Option {
	return func(h *Hub) { h.secret = secret }
}

// WithCommands routes client commands to fn.
func WithCommands(fn CommandFunc) Option {
	return func(h *Hub) { h.commands = fn }
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// Hub is a display.Display that broadcasts every mutation to the connected
// pages. It keeps the current page state so a page that connects late is
// brought up to date first.
type Hub struct {
	base     *display.Layout
	secret   string
	commands CommandFunc
	logger   *slog.Logger
	upgrader ws.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	// page state for replay
	overlay   *core.Overlay
	markers   map[string]streaming.MarkerPayload
	order     []string
	step      *streaming.StepPayload
	sweeps    map[int]float64
	highlight int
}

// NewHub creates a hub. HasElement answers from base and from the layouts
// the clients declare.
func NewHub(base *display.Layout, opts ...Option) *Hub {
	h := &Hub{
		base:      base,
		logger:    slog.Default(),
		upgrader:  ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   make(map[*client]struct{}),
		markers:   make(map[string]streaming.MarkerPayload),
		sweeps:    make(map[int]float64),
		highlight: core.NoFlight,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the page until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("secret")), []byte(h.secret)) != 1 {
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Info("Page connected", "remote", r.RemoteAddr, "clients", h.Clients())

	go c.writeLoop()
	c.readLoop(r.Context())

	h.unregister(c)
	h.logger.Info("Page disconnected", "remote", r.RemoteAddr, "clients", h.Clients())
}

// register adds c and queues the replay of the page state, under the same
// lock broadcasts take so no mutation slips between the two.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, msg := range h.snapshotLocked() {
		c.send(msg)
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects every page.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}

func (h *Hub) snapshotLocked() [][]byte {
	var out [][]byte
	add := func(msgType string, payload any) {
		data, err := streaming.MarshalEnvelope(msgType, payload)
		if err != nil {
			h.logger.Error("Failed to encode replay message", "type", msgType, "error", err)
			return
		}
		out = append(out, data)
	}

	if h.overlay != nil {
		add(streaming.TypeRoute, h.overlay)
	}
	for _, id := range h.order {
		add(streaming.TypeMarkerAdd, h.markers[id])
	}
	if h.step != nil {
		add(streaming.TypeStep, h.step)
	}
	indexes := make([]int, 0, len(h.sweeps))
	for i := range h.sweeps {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		add(streaming.TypeSweep, streaming.SweepPayload{FlightIndex: i, Element: display.PlaneIconID(i), Fraction: h.sweeps[i]})
	}
	if h.highlight != core.NoFlight {
		add(streaming.TypeHighlight, streaming.HighlightPayload{FlightIndex: h.highlight, Element: display.FlightCardID(h.highlight)})
	}
	return out
}

// update applies fn to the page state and broadcasts the message.
func (h *Hub) update(msgType string, payload any, fn func()) {
	data, err := streaming.MarshalEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to encode message", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if fn != nil {
		fn()
	}
	for c := range h.clients {
		c.send(data)
	}
}

func (h *Hub) HasElement(id string) bool {
	if h.base.Has(id) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.layout.Has(id) {
			return true
		}
	}
	return false
}

func (h *Hub) AddMarker(id string, pos core.GeoCoordinate, glyph display.Glyph) {
	p := streaming.MarkerPayload{ID: id, Position: &pos, Glyph: string(glyph)}
	h.update(streaming.TypeMarkerAdd, p, func() {
		if _, ok := h.markers[id]; !ok {
			h.order = append(h.order, id)
		}
		h.markers[id] = p
	})
}

func (h *Hub) MoveMarker(id string, pos core.GeoCoordinate) {
	h.update(streaming.TypeMarkerMove, streaming.MarkerPayload{ID: id, Position: &pos}, func() {
		if m, ok := h.markers[id]; ok {
			m.Position = &pos
			h.markers[id] = m
		}
	})
}

func (h *Hub) SetMarkerGlyph(id string, glyph display.Glyph) {
	h.update(streaming.TypeMarkerGlyph, streaming.MarkerPayload{ID: id, Glyph: string(glyph)}, func() {
		if m, ok := h.markers[id]; ok {
			m.Glyph = string(glyph)
			h.markers[id] = m
		}
	})
}

func (h *Hub) RemoveMarker(id string) {
	h.update(streaming.TypeMarkerRemove, streaming.MarkerPayload{ID: id}, func() {
		delete(h.markers, id)
		for i, o := range h.order {
			if o == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	})
}

func (h *Hub) SetStep(step string, progress int) {
	p := streaming.StepPayload{Step: step, Element: display.StepID(step), Progress: progress}
	h.update(streaming.TypeStep, p, func() { h.step = &p })
}

func (h *Hub) SetSweep(flightIndex int, fraction float64) {
	p := streaming.SweepPayload{FlightIndex: flightIndex, Element: display.PlaneIconID(flightIndex), Fraction: fraction}
	h.update(streaming.TypeSweep, p, func() { h.sweeps[flightIndex] = fraction })
}

func (h *Hub) ResetSweeps() {
	h.update(streaming.TypeSweepReset, nil, func() { h.sweeps = make(map[int]float64) })
}

func (h *Hub) HighlightFlight(flightIndex int) {
	p := streaming.HighlightPayload{FlightIndex: flightIndex, Element: display.FlightCardID(flightIndex)}
	h.update(streaming.TypeHighlight, p, func() { h.highlight = flightIndex })
}

func (h *Hub) ClearHighlight() {
	h.update(streaming.TypeHighlightClear, nil, func() { h.highlight = core.NoFlight })
}

func (h *Hub) DrawRoute(overlay core.Overlay) {
	h.update(streaming.TypeRoute, overlay, func() { h.overlay = &overlay })
}

func (h *Hub) ReportError(err error) {
	h.update(streaming.TypeError, streaming.ErrorPayload{Message: err.Error()}, nil)
}

// PublishStatus sends a status snapshot to every page. Status is not
// replayed.
func (h *Hub) PublishStatus(status any) {
	h.update(streaming.TypeStatus, status, nil)
}

// runCommand executes a client command and builds the reply.
func (h *Hub) runCommand(ctx context.Context, cmd streaming.CommandPayload) streaming.ReplyPayload {
	reply := streaming.ReplyPayload{ID: cmd.ID, Command: cmd.Command}
	if h.commands == nil {
		reply.Error = "commands are not accepted"
		return reply
	}

	result, err := h.commands(ctx, cmd.Command, cmd.Args)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.Result = raw
	}
	return reply
}
