// pkg/core/route.go
package core

import (
	"fmt"
	"time"
)

// ShipmentKey identifies a consignment note by branch, series and number.
type ShipmentKey struct {
	Branch string `json:"filial"`
	Series string `json:"serie"`
	Number string `json:"ctc"`
}

func (k ShipmentKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Branch, k.Series, k.Number)
}

// IsZero reports whether no part of the key is set.
func (k ShipmentKey) IsZero() bool {
	return k.Branch == "" && k.Series == "" && k.Number == ""
}

// Place is a named city-level location (shipment origin or destination).
type Place struct {
	Name     string        `json:"name"`
	State    string        `json:"state,omitempty"`
	Position GeoCoordinate `json:"position"`
}

// Airport is an airport served by a flight leg.
type Airport struct {
	IATA     string        `json:"iata"`
	Name     string        `json:"name"`
	Position GeoCoordinate `json:"position"`
}

// FlightLeg is one scheduled flight of a route.
type FlightLeg struct {
	Carrier      string    `json:"carrier"`
	FlightNumber string    `json:"flightNumber"`
	Departure    time.Time `json:"departure"`
	Arrival      time.Time `json:"arrival"`
	Origin       Airport   `json:"origin"`
	Destination  Airport   `json:"destination"`
}

// Route is a resolved shipment route: a ground leg from the origin city to the
// first airport, one or more flights, and a ground leg to the destination city.
type Route struct {
	Key         ShipmentKey `json:"key"`
	Origin      Place       `json:"origin"`
	Destination Place       `json:"destination"`
	Flights     []FlightLeg `json:"flights"`
}
