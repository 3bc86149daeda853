// Package storagetest holds the behaviour every storage.Backend shares.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SampleRoute returns a Campinas to Manaus route with two flights.
func SampleRoute(number string) *core.Route {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &core.Route{
		Key:         core.ShipmentKey{Branch: "01", Series: "1", Number: number},
		Origin:      core.Place{Name: "Campinas", State: "SP", Position: core.GeoCoordinate{Lat: -22.90, Lon: -47.06}},
		Destination: core.Place{Name: "Manaus", State: "AM", Position: core.GeoCoordinate{Lat: -3.13, Lon: -60.02}},
		Flights: []core.FlightLeg{
			{
				Carrier:      "AZUL",
				FlightNumber: "AD4050",
				Departure:    day.Add(9*time.Hour + 10*time.Minute),
				Arrival:      day.Add(10*time.Hour + 45*time.Minute),
				Origin:       core.Airport{IATA: "VCP", Name: "Viracopos", Position: core.GeoCoordinate{Lat: -23.00, Lon: -47.13}},
				Destination:  core.Airport{IATA: "BSB", Name: "Brasilia", Position: core.GeoCoordinate{Lat: -15.87, Lon: -47.92}},
			},
			{
				Carrier:      "AZUL",
				FlightNumber: "AD2718",
				Departure:    day.Add(12 * time.Hour),
				Arrival:      day.Add(14*time.Hour + 55*time.Minute),
				Origin:       core.Airport{IATA: "BSB", Name: "Brasilia", Position: core.GeoCoordinate{Lat: -15.87, Lon: -47.92}},
				Destination:  core.Airport{IATA: "MAO", Name: "Eduardo Gomes", Position: core.GeoCoordinate{Lat: -3.03, Lon: -60.04}},
			},
		},
	}
}

// RunBackendTests exercises save, load, replace and list on a fresh backend
// from newBackend. The backend must be initialised and empty.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("SaveLoad", func(t *testing.T) {
		b := newBackend(t)
		want := SampleRoute("100")
		require.NoError(t, b.SaveRoute(ctx, want))

		got, err := b.LoadRoute(ctx, want.Key)
		require.NoError(t, err)
		assert.Equal(t, want.Key, got.Key)
		assert.Equal(t, want.Origin, got.Origin)
		assert.Equal(t, want.Destination, got.Destination)
		require.Len(t, got.Flights, 2)
		assert.Equal(t, "AD2718", got.Flights[1].FlightNumber)
		assert.True(t, want.Flights[0].Departure.Equal(got.Flights[0].Departure))
	})

	t.Run("NotFound", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.LoadRoute(ctx, core.ShipmentKey{Branch: "99", Series: "9", Number: "0"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrRouteNotFound))
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		b := newBackend(t)
		r := SampleRoute("200")
		require.NoError(t, b.SaveRoute(ctx, r))

		r.Flights = r.Flights[:1]
		r.Destination.Name = "Brasilia"
		require.NoError(t, b.SaveRoute(ctx, r))

		got, err := b.LoadRoute(ctx, r.Key)
		require.NoError(t, err)
		assert.Len(t, got.Flights, 1)
		assert.Equal(t, "Brasilia", got.Destination.Name)

		keys, err := b.ListRoutes(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("LoadedCopyIsIndependent", func(t *testing.T) {
		b := newBackend(t)
		r := SampleRoute("300")
		require.NoError(t, b.SaveRoute(ctx, r))

		got, err := b.LoadRoute(ctx, r.Key)
		require.NoError(t, err)
		got.Flights[0].Carrier = "GOL"

		again, err := b.LoadRoute(ctx, r.Key)
		require.NoError(t, err)
		assert.Equal(t, "AZUL", again.Flights[0].Carrier)
	})

	t.Run("List", func(t *testing.T) {
		b := newBackend(t)
		keys, err := b.ListRoutes(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)

		require.NoError(t, b.SaveRoute(ctx, SampleRoute("401")))
		require.NoError(t, b.SaveRoute(ctx, SampleRoute("402")))

		keys, err = b.ListRoutes(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.ShipmentKey{
			{Branch: "01", Series: "1", Number: "401"},
			{Branch: "01", Series: "1", Number: "402"},
		}, keys)
	})

	t.Run("RejectsMissingKey", func(t *testing.T) {
		b := newBackend(t)
		assert.Error(t, b.SaveRoute(ctx, &core.Route{}))
	})
}
