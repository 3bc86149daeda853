package geo

import (
	"strings"
	"testing"

	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteLine_Valid(t *testing.T) {
	ls, err := RouteLine([]core.GeoCoordinate{
		{Lat: 0, Lon: 0},
		{Lat: 3, Lon: 4},
		{Lat: 3, Lon: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, ls.Coordinates().Length())
	assert.InDelta(t, 11, LineLength(ls), 1e-9)
}

func TestRouteLine_TooFewPoints(t *testing.T) {
	_, err := RouteLine([]core.GeoCoordinate{{Lat: 1, Lon: 1}})
	assert.Error(t, err)

	_, err = RouteLine(nil)
	assert.Error(t, err)
}

func TestRouteLine_InvalidPoint(t *testing.T) {
	_, err := RouteLine([]core.GeoCoordinate{{Lat: 0, Lon: 0}, {Lat: 100, Lon: 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestBoundsOf(t *testing.T) {
	ls, err := RouteLine([]core.GeoCoordinate{
		{Lat: -23.55, Lon: -46.63},
		{Lat: -3.71, Lon: -38.54},
		{Lat: -15.79, Lon: -47.88},
	})
	require.NoError(t, err)

	b, err := BoundsOf(ls)
	require.NoError(t, err)

	assert.Equal(t, core.GeoCoordinate{Lat: -23.55, Lon: -47.88}, b.SouthWest)
	assert.Equal(t, core.GeoCoordinate{Lat: -3.71, Lon: -38.54}, b.NorthEast)
	assert.InDelta(t, -13.63, b.Center().Lat, 1e-9)
}

func TestAsWKT(t *testing.T) {
	ls, err := RouteLine([]core.GeoCoordinate{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	require.NoError(t, err)

	wkt := AsWKT(ls)
	assert.True(t, strings.HasPrefix(wkt, "LINESTRING"), wkt)
	assert.Contains(t, wkt, "2 1")
	assert.Contains(t, wkt, "4 3")
}
