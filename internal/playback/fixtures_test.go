package playback

import (
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
)

var (
	epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	campinas  = core.GeoCoordinate{Lat: -22.90, Lon: -47.06}
	vcp       = core.GeoCoordinate{Lat: -23.00, Lon: -47.13}
	bsb       = core.GeoCoordinate{Lat: -15.87, Lon: -47.92}
	mao       = core.GeoCoordinate{Lat: -3.03, Lon: -60.04}
	manausCBD = core.GeoCoordinate{Lat: -3.13, Lon: -60.02}
)

// testRoute is Campinas -> VCP -> BSB -> MAO -> Manaus.
func testRoute() *core.Route {
	return &core.Route{
		Key:         core.ShipmentKey{Branch: "01", Series: "1", Number: "123456"},
		Origin:      core.Place{Name: "Campinas", State: "SP", Position: campinas},
		Destination: core.Place{Name: "Manaus", State: "AM", Position: manausCBD},
		Flights: []core.FlightLeg{
			{
				Carrier:      "AZUL",
				FlightNumber: "AD4050",
				Origin:       core.Airport{IATA: "VCP", Name: "Viracopos", Position: vcp},
				Destination:  core.Airport{IATA: "BSB", Name: "Brasilia", Position: bsb},
			},
			{
				Carrier:      "AZUL",
				FlightNumber: "AD2718",
				Origin:       core.Airport{IATA: "BSB", Name: "Brasilia", Position: bsb},
				Destination:  core.Airport{IATA: "MAO", Name: "Eduardo Gomes", Position: mao},
			},
		},
	}
}
