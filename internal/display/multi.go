package display

import "github.com/cargotrack/routeplay/pkg/core"

// Multi fans every call out to several displays.
type Multi []Display

// NewMulti drops nil displays.
func NewMulti(displays ...Display) Multi {
	valid := make(Multi, 0, len(displays))
	for _, d := range displays {
		if d != nil {
			valid = append(valid, d)
		}
	}
	return valid
}

// HasElement is true when any display renders id.
func (m Multi) HasElement(id string) bool {
	for _, d := range m {
		if d.HasElement(id) {
			return true
		}
	}
	return false
}

func (m Multi) AddMarker(id string, pos core.GeoCoordinate, glyph Glyph) {
	for _, d := range m {
		d.AddMarker(id, pos, glyph)
	}
}

func (m Multi) MoveMarker(id string, pos core.GeoCoordinate) {
	for _, d := range m {
		d.MoveMarker(id, pos)
	}
}

func (m Multi) SetMarkerGlyph(id string, glyph Glyph) {
	for _, d := range m {
		d.SetMarkerGlyph(id, glyph)
	}
}

func (m Multi) RemoveMarker(id string) {
	for _, d := range m {
		d.RemoveMarker(id)
	}
}

func (m Multi) SetStep(step string, progress int) {
	for _, d := range m {
		d.SetStep(step, progress)
	}
}

func (m Multi) SetSweep(flightIndex int, fraction float64) {
	for _, d := range m {
		d.SetSweep(flightIndex, fraction)
	}
}

func (m Multi) ResetSweeps() {
	for _, d := range m {
		d.ResetSweeps()
	}
}

func (m Multi) HighlightFlight(flightIndex int) {
	for _, d := range m {
		d.HighlightFlight(flightIndex)
	}
}

func (m Multi) ClearHighlight() {
	for _, d := range m {
		d.ClearHighlight()
	}
}

func (m Multi) DrawRoute(overlay core.Overlay) {
	for _, d := range m {
		d.DrawRoute(overlay)
	}
}

func (m Multi) ReportError(err error) {
	for _, d := range m {
		d.ReportError(err)
	}
}
