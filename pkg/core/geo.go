// pkg/core/geo.go
package core

import "time"

// GeoCoordinate is a WGS84 position in decimal degrees.
type GeoCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint is a path vertex together with the time it takes to reach it
// from the previous vertex. ArrivalDuration of the first vertex is unused.
type Waypoint struct {
	Position        GeoCoordinate `json:"position"`
	ArrivalDuration time.Duration `json:"arrivalDuration"`
}

// Bounds is the smallest lat/lon box enclosing a set of positions.
type Bounds struct {
	SouthWest GeoCoordinate `json:"southWest"`
	NorthEast GeoCoordinate `json:"northEast"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoCoordinate {
	return GeoCoordinate{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lon: (b.SouthWest.Lon + b.NorthEast.Lon) / 2,
	}
}
