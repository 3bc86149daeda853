package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRoute is the resolved route the planning dashboard renders in its
// editor: the consignment, the origin and destination cities and the
// chosen flights.
type RawRoute struct {
	Branch      string      `json:"filial"`
	Series      string      `json:"serie"`
	Number      string      `json:"ctc"`
	Origin      RawPlace    `json:"origem"`
	Destination RawPlace    `json:"destino"`
	Flights     []RawFlight `json:"rotas"`
}

// RawPlace is a city with coordinates.
type RawPlace struct {
	Name  string     `json:"nome"`
	State string     `json:"uf"`
	Lat   *flexFloat `json:"lat"`
	Lon   *flexFloat `json:"lon"`
}

// RawAirport is an airport with coordinates.
type RawAirport struct {
	IATA string     `json:"iata"`
	Name string     `json:"nome"`
	Lat  *flexFloat `json:"lat"`
	Lon  *flexFloat `json:"lon"`
}

// RawFlight is one flight of the route. Date is dd/mm/yyyy, times are HH:MM
// local time.
type RawFlight struct {
	Carrier     string     `json:"cia"`
	Number      string     `json:"voo"`
	Date        string     `json:"data"`
	Departure   string     `json:"horario_saida"`
	Arrival     string     `json:"horario_chegada"`
	Origin      RawAirport `json:"origem"`
	Destination RawAirport `json:"destino"`
}

// flexFloat accepts a JSON number or a numeric string. Database decimals
// reach the dashboard as strings, sometimes with a decimal comma.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := parseFloat(s)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// parseFloat parses "-22.90" as well as "-22,90".
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parseFloat: %q is not a number", s)
	}
	return v, nil
}
