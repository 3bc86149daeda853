package display

import (
	"sync"

	"github.com/cargotrack/routeplay/pkg/core"
)

// Op is one recorded Display call.
type Op struct {
	Kind        string
	ID          string
	Position    core.GeoCoordinate
	Glyph       Glyph
	Step        string
	Progress    int
	FlightIndex int
	Fraction    float64
	Err         error
}

// Recorder is an in-memory Display. It keeps the log of calls and the
// resulting page state, and is safe for concurrent reads.
type Recorder struct {
	layout *Layout

	mu        sync.RWMutex
	ops       []Op
	markers   map[string]core.GeoCoordinate
	glyphs    map[string]Glyph
	step      string
	progress  int
	sweeps    map[int]float64
	highlight int
	overlay   *core.Overlay
	errs      []error
}

// NewRecorder creates a recorder whose HasElement answers from layout.
// A nil layout renders nothing.
func NewRecorder(layout *Layout) *Recorder {
	return &Recorder{
		layout:    layout,
		markers:   make(map[string]core.GeoCoordinate),
		glyphs:    make(map[string]Glyph),
		sweeps:    make(map[int]float64),
		highlight: core.NoFlight,
	}
}

func (r *Recorder) record(op Op) {
	r.ops = append(r.ops, op)
}

func (r *Recorder) HasElement(id string) bool {
	return r.layout.Has(id)
}

func (r *Recorder) AddMarker(id string, pos core.GeoCoordinate, glyph Glyph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[id] = pos
	r.glyphs[id] = glyph
	r.record(Op{Kind: "marker_add", ID: id, Position: pos, Glyph: glyph})
}

func (r *Recorder) MoveMarker(id string, pos core.GeoCoordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[id]; ok {
		r.markers[id] = pos
	}
	r.record(Op{Kind: "marker_move", ID: id, Position: pos})
}

func (r *Recorder) SetMarkerGlyph(id string, glyph Glyph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[id]; ok {
		r.glyphs[id] = glyph
	}
	r.record(Op{Kind: "marker_glyph", ID: id, Glyph: glyph})
}

func (r *Recorder) RemoveMarker(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.markers, id)
	delete(r.glyphs, id)
	r.record(Op{Kind: "marker_remove", ID: id})
}

func (r *Recorder) SetStep(step string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = step
	r.progress = progress
	r.record(Op{Kind: "step", Step: step, Progress: progress})
}

func (r *Recorder) SetSweep(flightIndex int, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps[flightIndex] = fraction
	r.record(Op{Kind: "sweep", FlightIndex: flightIndex, Fraction: fraction})
}

func (r *Recorder) ResetSweeps() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = make(map[int]float64)
	r.record(Op{Kind: "sweep_reset"})
}

func (r *Recorder) HighlightFlight(flightIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = flightIndex
	r.record(Op{Kind: "highlight", FlightIndex: flightIndex})
}

func (r *Recorder) ClearHighlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = core.NoFlight
	r.record(Op{Kind: "highlight_clear"})
}

func (r *Recorder) DrawRoute(overlay core.Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlay = &overlay
	r.record(Op{Kind: "route"})
}

func (r *Recorder) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.record(Op{Kind: "error", Err: err})
}

// Ops returns a copy of the call log.
func (r *Recorder) Ops() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Op(nil), r.ops...)
}

// OpsOf returns the recorded calls of one kind.
func (r *Recorder) OpsOf(kind string) []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Op
	for _, op := range r.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Reset clears the call log, keeping the page state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// Markers returns the markers on the page by id.
func (r *Recorder) Markers() map[string]core.GeoCoordinate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]core.GeoCoordinate, len(r.markers))
	for id, pos := range r.markers {
		out[id] = pos
	}
	return out
}

// Glyph returns the glyph of marker id.
func (r *Recorder) Glyph(id string) Glyph {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.glyphs[id]
}

// Step returns the active step and the progress line percent.
func (r *Recorder) Step() (string, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.step, r.progress
}

// Sweep returns the sweep fraction of a flight card.
func (r *Recorder) Sweep(flightIndex int) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.sweeps[flightIndex]
	return f, ok
}

// Highlighted returns the highlighted flight, or core.NoFlight.
func (r *Recorder) Highlighted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.highlight
}

// Overlay returns the last drawn route.
func (r *Recorder) Overlay() (core.Overlay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.overlay == nil {
		return core.Overlay{}, false
	}
	return *r.overlay, true
}

// Errors returns the reported errors.
func (r *Recorder) Errors() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]error(nil), r.errs...)
}
