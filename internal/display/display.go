// Package display describes the visual side effects of route playback. The
// engine never touches a page directly; it calls a Display, and adapters turn
// the calls into WebSocket messages, telemetry points or an in-memory log.
package display

import (
	"fmt"

	"github.com/cargotrack/routeplay/pkg/core"
)

// Glyph is the icon a marker is drawn with.
type Glyph string

const (
	GlyphVehicle     Glyph = "vehicle"
	GlyphAircraft    Glyph = "aircraft"
	GlyphOrigin      Glyph = "origin"
	GlyphDestination Glyph = "destination"
)

// Progress steps of the side panel.
const (
	StepPickup   = "pickup"
	StepAir      = "air"
	StepDelivery = "delivery"
)

// Steps lists the progress steps in display order.
var Steps = []string{StepPickup, StepAir, StepDelivery}

// StepID is the element id of a progress step.
func StepID(step string) string {
	return "step-" + step
}

// PlaneIconID is the element id of the sweep icon of a flight card.
func PlaneIconID(flightIndex int) string {
	return fmt.Sprintf("plane-icon-%d", flightIndex)
}

// FlightCardID is the element id of a flight card.
func FlightCardID(flightIndex int) string {
	return fmt.Sprintf("card-flight-%d", flightIndex)
}

// Display receives every visual mutation of a playback session. Calls are
// made from the scheduling thread; implementations that are read from other
// goroutines synchronize internally.
type Display interface {
	// HasElement reports whether the page renders the element with id.
	HasElement(id string) bool

	AddMarker(id string, pos core.GeoCoordinate, glyph Glyph)
	MoveMarker(id string, pos core.GeoCoordinate)
	SetMarkerGlyph(id string, glyph Glyph)
	RemoveMarker(id string)

	// SetStep activates step, marking earlier steps completed, and sets the
	// progress line to progress percent.
	SetStep(step string, progress int)

	// SetSweep moves the sweep icon of a flight card to fraction in [0, 1].
	SetSweep(flightIndex int, fraction float64)
	ResetSweeps()

	HighlightFlight(flightIndex int)
	ClearHighlight()

	DrawRoute(overlay core.Overlay)
	ReportError(err error)
}

// MarkerLayer renders a marker through a Display.
type MarkerLayer struct {
	d  Display
	id string
}

// LayerFor returns the layer that moves marker id on d.
func LayerFor(d Display, id string) *MarkerLayer {
	return &MarkerLayer{d: d, id: id}
}

// SetPosition implements marker.Layer.
func (l *MarkerLayer) SetPosition(pos core.GeoCoordinate) {
	l.d.MoveMarker(l.id, pos)
}
