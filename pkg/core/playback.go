// pkg/core/playback.go
package core

import (
	"fmt"
	"time"
)

// LegKind tells how the vehicle travels to a point.
type LegKind int

const (
	LegGround LegKind = iota
	LegAir
)

func (k LegKind) String() string {
	switch k {
	case LegGround:
		return "ground"
	case LegAir:
		return "air"
	default:
		return fmt.Sprintf("LegKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k LegKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LegKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ground":
		*k = LegGround
	case "air":
		*k = LegAir
	default:
		return fmt.Errorf("unknown leg kind %q", string(b))
	}
	return nil
}

// NoFlight is the FlightIndex of points that are not reached by air.
const NoFlight = -1

// AnimatedPoint is one stop of the playback sequence. Duration is the travel
// time from the previous point; it is zero for the first point.
type AnimatedPoint struct {
	Position    GeoCoordinate `json:"position"`
	Duration    time.Duration `json:"duration"`
	Kind        LegKind       `json:"kind"`
	FlightIndex int           `json:"flightIndex"`
}

// OverlayLine is one drawn leg of the route overlay.
type OverlayLine struct {
	Kind   LegKind         `json:"kind"`
	Path   []GeoCoordinate `json:"path"`
	Color  string          `json:"color"`
	Weight int             `json:"weight"`
	Dash   string          `json:"dash,omitempty"`
}

// OverlayPin is a static map pin of the route overlay.
type OverlayPin struct {
	Kind     string        `json:"kind"`
	Position GeoCoordinate `json:"position"`
	Label    string        `json:"label"`
	Detail   string        `json:"detail,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// Overlay is the static drawing of a route under the moving marker.
type Overlay struct {
	Key    ShipmentKey   `json:"key"`
	Lines  []OverlayLine `json:"lines"`
	Pins   []OverlayPin  `json:"pins"`
	Bounds Bounds        `json:"bounds"`
	WKT    string        `json:"wkt"`
}
