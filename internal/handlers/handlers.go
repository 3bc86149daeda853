// Package handlers implements the playback commands accepted from the page
// stream and the HTTP API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cargotrack/routeplay/internal/dispatcher"
	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/logging"
	"github.com/cargotrack/routeplay/internal/parser"
	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"
)

// Command names.
const (
	CmdRouteLoad      = ":ROUTE:LOAD:"
	CmdRouteConfirm   = ":ROUTE:CONFIRM:"
	CmdRouteList      = ":ROUTE:LIST:"
	CmdPlaybackStart  = ":PLAYBACK:START:"
	CmdPlaybackPause  = ":PLAYBACK:PAUSE:"
	CmdPlaybackResume = ":PLAYBACK:RESUME:"
	CmdPlaybackStop   = ":PLAYBACK:STOP:"
	CmdPlaybackStatus = ":PLAYBACK:STATUS:"
)

var (
	// ErrBadArguments is returned when a command has the wrong arguments.
	ErrBadArguments = errors.New("bad arguments")
	// ErrNoBackend is returned by commands that need route storage.
	ErrNoBackend = errors.New("no route storage configured")
	// ErrNotPlanner is returned by CmdRouteConfirm when the storage cannot
	// confirm plans.
	ErrNotPlanner = errors.New("route storage cannot confirm plans")
)

// Player is the session the handlers drive. Every method except Status must
// run on the scheduling thread.
type Player interface {
	PlayRoute(route *core.Route) error
	Pause() error
	Resume() error
	Stop()
	Status() playback.Status
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session    Player
	Runner     frame.Runner
	Backend    storage.Backend
	Parser     *parser.Parser
	LogManager *logging.SlogManager
}

// Service provides the command handlers.
type Service struct {
	deps         Dependencies
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(nil, nil)
	}
	s := &Service{deps: deps}
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// Register adds every command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdRouteLoad, s.LoadRoute, dispatcher.Logged())
	d.Register(CmdRouteConfirm, s.ConfirmRoute, dispatcher.Logged())
	d.Register(CmdRouteList, s.ListRoutes)
	d.Register(CmdPlaybackStart, s.StartPlayback, dispatcher.Logged())
	d.Register(CmdPlaybackPause, s.PausePlayback, dispatcher.Logged())
	d.Register(CmdPlaybackResume, s.ResumePlayback, dispatcher.Logged())
	d.Register(CmdPlaybackStop, s.StopPlayback, dispatcher.Logged())
	d.Register(CmdPlaybackStatus, s.PlaybackStatus)
}

// onLoop runs fn on the scheduling thread.
func (s *Service) onLoop(fn func() error) error {
	if s.deps.Runner == nil {
		return fn()
	}
	var err error
	if doErr := s.deps.Runner.Do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Service) play(route *core.Route) (any, error) {
	if err := s.onLoop(func() error { return s.deps.Session.PlayRoute(route) }); err != nil {
		return nil, err
	}
	return s.deps.Session.Status(), nil
}

// LoadRoute parses a resolved route document, stores it and plays it.
// args[0] is the document.
func (s *Service) LoadRoute(ctx context.Context, e dispatcher.Event) (any, error) {
	functionName := CmdRouteLoad
	if len(e.Args) < 1 || strings.TrimSpace(e.Args[0]) == "" {
		return nil, fmt.Errorf("%w: %s expects a route document", ErrBadArguments, functionName)
	}

	route, err := s.deps.Parser.ParseRoute([]byte(e.Args[0]))
	if err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error parsing route: %v`, err), "ERROR")
		return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
	}

	if s.deps.Backend != nil {
		if err := s.deps.Backend.SaveRoute(ctx, route); err != nil {
			s.writeLog(functionName, fmt.Sprintf(`Error saving route %s: %v`, route.Key, err), "WARN")
		}
	}

	s.writeLog(functionName, fmt.Sprintf(`Playing route %s with %d flights`, route.Key, len(route.Flights)), "INFO")
	return s.play(route)
}

// StartPlayback loads a stored route by filial, serie and ctc and plays it.
func (s *Service) StartPlayback(ctx context.Context, e dispatcher.Event) (any, error) {
	functionName := CmdPlaybackStart
	key, err := keyFromArgs(e.Args)
	if err != nil {
		return nil, err
	}
	if s.deps.Backend == nil {
		return nil, ErrNoBackend
	}

	route, err := s.deps.Backend.LoadRoute(ctx, key)
	if err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error loading route %s: %v`, key, err), "ERROR")
		return nil, err
	}

	s.writeLog(functionName, fmt.Sprintf(`Playing stored route %s`, key), "INFO")
	return s.play(route)
}

// ConfirmRoute records a stored route as the shipment's plan and returns the
// plan id.
func (s *Service) ConfirmRoute(ctx context.Context, e dispatcher.Event) (any, error) {
	functionName := CmdRouteConfirm
	key, err := keyFromArgs(e.Args)
	if err != nil {
		return nil, err
	}
	if s.deps.Backend == nil {
		return nil, ErrNoBackend
	}
	planner, ok := storage.As[storage.Planner](s.deps.Backend)
	if !ok {
		return nil, ErrNotPlanner
	}

	route, err := s.deps.Backend.LoadRoute(ctx, key)
	if err != nil {
		return nil, err
	}
	id, err := planner.ConfirmRoute(ctx, route)
	if err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error confirming route %s: %v`, key, err), "ERROR")
		return nil, err
	}
	return map[string]string{"route": key.String(), "planId": id}, nil
}

// ListRoutes returns the stored shipment keys, most recent first.
func (s *Service) ListRoutes(ctx context.Context, _ dispatcher.Event) (any, error) {
	if s.deps.Backend == nil {
		return nil, ErrNoBackend
	}
	keys, err := s.deps.Backend.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []core.ShipmentKey{}
	}
	return keys, nil
}

func (s *Service) PausePlayback(_ context.Context, _ dispatcher.Event) (any, error) {
	if err := s.onLoop(s.deps.Session.Pause); err != nil {
		return nil, err
	}
	return s.deps.Session.Status(), nil
}

func (s *Service) ResumePlayback(_ context.Context, _ dispatcher.Event) (any, error) {
	if err := s.onLoop(s.deps.Session.Resume); err != nil {
		return nil, err
	}
	return s.deps.Session.Status(), nil
}

func (s *Service) StopPlayback(_ context.Context, _ dispatcher.Event) (any, error) {
	err := s.onLoop(func() error {
		s.deps.Session.Stop()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.deps.Session.Status(), nil
}

func (s *Service) PlaybackStatus(_ context.Context, _ dispatcher.Event) (any, error) {
	return s.deps.Session.Status(), nil
}

func keyFromArgs(args []string) (core.ShipmentKey, error) {
	if len(args) < 3 {
		return core.ShipmentKey{}, fmt.Errorf("%w: expected filial, serie and ctc, got %d values", ErrBadArguments, len(args))
	}
	key := core.ShipmentKey{
		Branch: strings.TrimSpace(args[0]),
		Series: strings.TrimSpace(args[1]),
		Number: strings.TrimSpace(args[2]),
	}
	if key.Branch == "" || key.Series == "" || key.Number == "" {
		return core.ShipmentKey{}, fmt.Errorf("%w: incomplete shipment key %q", ErrBadArguments, key.String())
	}
	return key, nil
}
