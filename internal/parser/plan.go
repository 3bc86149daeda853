package parser

import (
	"github.com/cargotrack/routeplay/pkg/core"
)

const isoLayout = "2006-01-02T15:04:05"

// PlanLeg is one flight of a confirmed plan.
type PlanLeg struct {
	Carrier     string `json:"cia"`
	Number      string `json:"voo"`
	Origin      string `json:"origem"`
	Destination string `json:"destino"`
	Departure   string `json:"partida_iso,omitempty"`
	Arrival     string `json:"chegada_iso,omitempty"`
}

// Plan is the document the dashboard stores when a route is confirmed.
type Plan struct {
	Branch string    `json:"filial"`
	Series string    `json:"serie"`
	Number string    `json:"ctc"`
	Legs   []PlanLeg `json:"rota_completa"`
}

// PlanPayload builds the confirmation document of a route. Times are
// written as local ISO timestamps without zone.
func PlanPayload(r *core.Route) Plan {
	plan := Plan{
		Branch: r.Key.Branch,
		Series: r.Key.Series,
		Number: r.Key.Number,
		Legs:   make([]PlanLeg, 0, len(r.Flights)),
	}
	for _, f := range r.Flights {
		leg := PlanLeg{
			Carrier:     f.Carrier,
			Number:      f.FlightNumber,
			Origin:      f.Origin.IATA,
			Destination: f.Destination.IATA,
		}
		if !f.Departure.IsZero() {
			leg.Departure = f.Departure.Format(isoLayout)
		}
		if !f.Arrival.IsZero() {
			leg.Arrival = f.Arrival.Format(isoLayout)
		}
		plan.Legs = append(plan.Legs, leg)
	}
	return plan
}
