// Package parser converts the planning dashboard's route documents into
// core routes and back into the plan it stores.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cargotrack/routeplay/internal/geo"
	"github.com/cargotrack/routeplay/pkg/core"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

var (
	// ErrMissingKey is returned when the consignment key is incomplete.
	ErrMissingKey = errors.New("shipment key is incomplete")
	// ErrMissingCoordinates is returned for a place or airport without lat/lon.
	ErrMissingCoordinates = errors.New("missing coordinates")
)

// Parser turns dashboard documents into routes. Times are read in loc.
type Parser struct {
	logger *slog.Logger
	loc    *time.Location
}

// NewParser creates a parser. A nil location means UTC.
func NewParser(logger *slog.Logger, loc *time.Location) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{logger: logger, loc: loc}
}

// ParseRoute decodes a resolved route document.
func (p *Parser) ParseRoute(data []byte) (*core.Route, error) {
	var raw RawRoute
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}
	return p.Convert(raw)
}

// Convert validates a decoded document and builds the route.
func (p *Parser) Convert(raw RawRoute) (*core.Route, error) {
	key := core.ShipmentKey{
		Branch: strings.TrimSpace(raw.Branch),
		Series: strings.TrimSpace(raw.Series),
		Number: strings.TrimSpace(raw.Number),
	}
	if key.Branch == "" || key.Series == "" || key.Number == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key.String())
	}

	route := &core.Route{Key: key}

	var err error
	if route.Origin, err = convertPlace(raw.Origin); err != nil {
		return nil, fmt.Errorf("route %s origin: %w", key, err)
	}
	if route.Destination, err = convertPlace(raw.Destination); err != nil {
		return nil, fmt.Errorf("route %s destination: %w", key, err)
	}

	for i, rf := range raw.Flights {
		f, err := p.convertFlight(rf)
		if err != nil {
			return nil, fmt.Errorf("route %s flight %d: %w", key, i, err)
		}
		route.Flights = append(route.Flights, f)
	}

	p.logger.Debug("Parsed route", "key", key.String(), "flights", len(route.Flights))
	return route, nil
}

func (p *Parser) convertFlight(rf RawFlight) (core.FlightLeg, error) {
	f := core.FlightLeg{
		Carrier:      strings.TrimSpace(rf.Carrier),
		FlightNumber: strings.TrimSpace(rf.Number),
	}

	var err error
	if f.Origin, err = convertAirport(rf.Origin); err != nil {
		return f, fmt.Errorf("origin: %w", err)
	}
	if f.Destination, err = convertAirport(rf.Destination); err != nil {
		return f, fmt.Errorf("destination: %w", err)
	}

	if rf.Date == "" {
		return f, nil
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(rf.Date), p.loc)
	if err != nil {
		return f, fmt.Errorf("invalid date %q: %w", rf.Date, err)
	}
	if f.Departure, err = atClock(day, rf.Departure); err != nil {
		return f, fmt.Errorf("departure: %w", err)
	}
	if f.Arrival, err = atClock(day, rf.Arrival); err != nil {
		return f, fmt.Errorf("arrival: %w", err)
	}
	// overnight flights arrive on the next day
	if !f.Departure.IsZero() && !f.Arrival.IsZero() && f.Arrival.Before(f.Departure) {
		f.Arrival = f.Arrival.AddDate(0, 0, 1)
	}
	return f, nil
}

// atClock returns day at the HH:MM clock time, or zero for an empty clock.
func atClock(day time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func convertPlace(rp RawPlace) (core.Place, error) {
	pos, err := coordinate(rp.Lat, rp.Lon)
	if err != nil {
		return core.Place{}, fmt.Errorf("%s: %w", rp.Name, err)
	}
	return core.Place{
		Name:     strings.TrimSpace(rp.Name),
		State:    strings.ToUpper(strings.TrimSpace(rp.State)),
		Position: pos,
	}, nil
}

func convertAirport(ra RawAirport) (core.Airport, error) {
	pos, err := coordinate(ra.Lat, ra.Lon)
	if err != nil {
		return core.Airport{}, fmt.Errorf("%s: %w", ra.IATA, err)
	}
	return core.Airport{
		IATA:     strings.ToUpper(strings.TrimSpace(ra.IATA)),
		Name:     strings.TrimSpace(ra.Name),
		Position: pos,
	}, nil
}

func coordinate(lat, lon *flexFloat) (core.GeoCoordinate, error) {
	if lat == nil || lon == nil {
		return core.GeoCoordinate{}, ErrMissingCoordinates
	}
	c := core.GeoCoordinate{Lat: float64(*lat), Lon: float64(*lon)}
	if err := geo.Validate(c); err != nil {
		return core.GeoCoordinate{}, err
	}
	return c, nil
}
