package geo

import (
	"fmt"

	"github.com/cargotrack/routeplay/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// RouteLine builds a line string through the given positions, X being the
// longitude and Y the latitude.
func RouteLine(points []core.GeoCoordinate) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("route line must have at least 2 points, got %d", len(points))
	}

	flatCoords := make([]float64, 0, len(points)*2)
	for i, p := range points {
		if err := Validate(p); err != nil {
			return geom.LineString{}, fmt.Errorf("point %d: %w", i, err)
		}
		flatCoords = append(flatCoords, p.Lon, p.Lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// BoundsOf returns the box enclosing every vertex of the line.
func BoundsOf(ls geom.LineString) (core.Bounds, error) {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return core.Bounds{}, fmt.Errorf("bounds of empty line")
	}

	first := seq.GetXY(0)
	b := core.Bounds{
		SouthWest: core.GeoCoordinate{Lat: first.Y, Lon: first.X},
		NorthEast: core.GeoCoordinate{Lat: first.Y, Lon: first.X},
	}
	for i := 1; i < n; i++ {
		xy := seq.GetXY(i)
		b.SouthWest.Lat = min(b.SouthWest.Lat, xy.Y)
		b.SouthWest.Lon = min(b.SouthWest.Lon, xy.X)
		b.NorthEast.Lat = max(b.NorthEast.Lat, xy.Y)
		b.NorthEast.Lon = max(b.NorthEast.Lon, xy.X)
	}
	return b, nil
}

// LineLength is the planar length of the line in degrees.
func LineLength(ls geom.LineString) float64 {
	return ls.Length()
}

// AsWKT serializes the line as well-known text.
func AsWKT(ls geom.LineString) string {
	return ls.AsText()
}
