package geo

import (
	"testing"
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/stretchr/testify/assert"
)

var (
	saoPaulo = core.GeoCoordinate{Lat: -23.5505, Lon: -46.6333}
	recife   = core.GeoCoordinate{Lat: -8.0476, Lon: -34.8770}
)

func TestInterpolate_Midpoint(t *testing.T) {
	start := core.GeoCoordinate{Lat: 0, Lon: 0}
	end := core.GeoCoordinate{Lat: 10, Lon: 20}

	got := Interpolate(start, end, 1000*time.Millisecond, 500*time.Millisecond)

	assert.InDelta(t, 5, got.Lat, 1e-9)
	assert.InDelta(t, 10, got.Lon, 1e-9)
}

func TestInterpolate_Bounds(t *testing.T) {
	total := 8 * time.Second

	assert.Equal(t, saoPaulo, Interpolate(saoPaulo, recife, total, 0))
	assert.Equal(t, saoPaulo, Interpolate(saoPaulo, recife, total, -time.Second))
	assert.Equal(t, recife, Interpolate(saoPaulo, recife, total, total))
	assert.Equal(t, recife, Interpolate(saoPaulo, recife, total, 3*total))
}

func TestInterpolate_ZeroDurationArrivesImmediately(t *testing.T) {
	assert.Equal(t, recife, Interpolate(saoPaulo, recife, 0, 0))
	assert.Equal(t, recife, Interpolate(saoPaulo, recife, 0, time.Second))
	assert.Equal(t, recife, Interpolate(saoPaulo, recife, -time.Second, 0))
}

func TestInterpolate_StaysOnSegment(t *testing.T) {
	total := 3 * time.Second
	for elapsed := time.Duration(0); elapsed <= total; elapsed += 100 * time.Millisecond {
		got := Interpolate(saoPaulo, recife, total, elapsed)

		assert.GreaterOrEqual(t, got.Lat, saoPaulo.Lat)
		assert.LessOrEqual(t, got.Lat, recife.Lat)
		assert.GreaterOrEqual(t, got.Lon, saoPaulo.Lon)
		assert.LessOrEqual(t, got.Lon, recife.Lon)
	}
}

func TestInterpolate_Deterministic(t *testing.T) {
	a := Interpolate(saoPaulo, recife, 3*time.Second, 1234*time.Millisecond)
	b := Interpolate(saoPaulo, recife, 3*time.Second, 1234*time.Millisecond)
	assert.Equal(t, a, b)
}
