package display

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cargotrack/routeplay/internal/geo"
	"github.com/cargotrack/routeplay/pkg/core"
)

const (
	groundColor  = "#999"
	groundDash   = "8,12"
	groundWeight = 3
	airWeight    = 4
	defaultColor = "#333"
)

var carrierColors = []struct {
	names []string
	color string
}{
	{[]string{"AZUL", "AD"}, "#0055a4"},
	{[]string{"LATAM", "LA"}, "#e60000"},
	{[]string{"GOL", "G3"}, "#ff6600"},
}

// CarrierColor returns the line colour of a carrier name or code.
func CarrierColor(carrier string) string {
	c := strings.ToUpper(carrier)
	for _, cc := range carrierColors {
		for _, name := range cc.names {
			if strings.Contains(c, name) {
				return cc.color
			}
		}
	}
	return defaultColor
}

// BuildOverlay draws a route: dashed ground legs at both ends, one coloured
// line per flight, airport pins and the origin and destination pins.
func BuildOverlay(r *core.Route) (core.Overlay, error) {
	if r == nil || len(r.Flights) == 0 {
		return core.Overlay{}, errors.New("route has no flights")
	}

	o := core.Overlay{Key: r.Key}
	o.Pins = append(o.Pins,
		core.OverlayPin{Kind: string(GlyphOrigin), Position: r.Origin.Position, Label: "Origin", Detail: placeLabel(r.Origin)},
		core.OverlayPin{Kind: string(GlyphDestination), Position: r.Destination.Position, Label: "Destination", Detail: placeLabel(r.Destination)},
	)

	vertices := []core.GeoCoordinate{r.Origin.Position}
	current := r.Origin.Position
	for i, f := range r.Flights {
		color := CarrierColor(f.Carrier)
		if i == 0 {
			o.Lines = append(o.Lines, groundLine(current, f.Origin.Position))
		}
		o.Lines = append(o.Lines, core.OverlayLine{
			Kind:   core.LegAir,
			Path:   []core.GeoCoordinate{f.Origin.Position, f.Destination.Position},
			Color:  color,
			Weight: airWeight,
		})
		o.Pins = append(o.Pins,
			core.OverlayPin{Kind: "airport", Position: f.Origin.Position, Label: f.Origin.IATA, Detail: f.Origin.Name, Color: color},
			core.OverlayPin{Kind: "airport", Position: f.Destination.Position, Label: f.Destination.IATA, Detail: f.Destination.Name, Color: color},
		)
		vertices = append(vertices, f.Origin.Position, f.Destination.Position)
		current = f.Destination.Position
	}
	o.Lines = append(o.Lines, groundLine(current, r.Destination.Position))
	vertices = append(vertices, r.Destination.Position)

	ls, err := geo.RouteLine(vertices)
	if err != nil {
		return core.Overlay{}, fmt.Errorf("route %s: %w", r.Key, err)
	}
	if o.Bounds, err = geo.BoundsOf(ls); err != nil {
		return core.Overlay{}, err
	}
	o.WKT = geo.AsWKT(ls)
	return o, nil
}

func groundLine(from, to core.GeoCoordinate) core.OverlayLine {
	return core.OverlayLine{
		Kind:   core.LegGround,
		Path:   []core.GeoCoordinate{from, to},
		Color:  groundColor,
		Weight: groundWeight,
		Dash:   groundDash,
	}
}

func placeLabel(p core.Place) string {
	if p.State == "" {
		return p.Name
	}
	return p.Name + "/" + p.State
}
