package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/wroge/wgs84"
)

// Positions travel through the engine as EPSG:4326 lat/lon pairs. Map clients
// that work in web mercator get EPSG:3857 metres alongside.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseCoordinate parses a string in the format "lat,lon".
func ParseCoordinate(coords string) (core.GeoCoordinate, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	c := core.GeoCoordinate{Lat: lat, Lon: lon}
	if err := Validate(c); err != nil {
		return core.GeoCoordinate{}, err
	}
	return c, nil
}

// Validate rejects NaN, infinite and out-of-range positions.
func Validate(c core.GeoCoordinate) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return ErrInvalidCoordinates
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

var toMercator = wgs84.EPSG().Transform(4326, 3857)

// ToWebMercator projects a position to EPSG:3857 metres.
func ToWebMercator(c core.GeoCoordinate) (x, y float64) {
	x, y, _ = toMercator(c.Lon, c.Lat, 0)
	return x, y
}
