package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cargotrack/routeplay/internal/handlers"
	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/storage"
)

// maxRouteBody caps the size of a posted route document.
const maxRouteBody = 1 << 20

func addRoutes(r chi.Router, deps Dependencies) {
	r.Get("/healthcheck", handleHealth(deps.Checks))
	if deps.Stream != nil {
		r.Handle("/ws", deps.Stream)
	}

	r.Route("/api/playback", func(r chi.Router) {
		r.Get("/status", handleCommand(deps.Commands, handlers.CmdPlaybackStatus))
		r.Post("/", handleLoadRoute(deps.Commands))
		r.Post("/pause", handleCommand(deps.Commands, handlers.CmdPlaybackPause))
		r.Post("/resume", handleCommand(deps.Commands, handlers.CmdPlaybackResume))
		r.Post("/stop", handleCommand(deps.Commands, handlers.CmdPlaybackStop))
		r.Post("/{filial}/{serie}/{ctc}", handleKeyCommand(deps.Commands, handlers.CmdPlaybackStart))
	})

	r.Route("/api/routes", func(r chi.Router) {
		r.Get("/", handleCommand(deps.Commands, handlers.CmdRouteList))
		r.Post("/{filial}/{serie}/{ctc}/confirm", handleKeyCommand(deps.Commands, handlers.CmdRouteConfirm))
	})
}

func handleHealth(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]any{"status": overall, "checks": results})
	}
}

func handleCommand(run CommandFunc, command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(r.Context(), w, run, command, nil)
	}
}

func handleKeyCommand(run CommandFunc, command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := []string{
			chi.URLParam(r, "filial"),
			chi.URLParam(r, "serie"),
			chi.URLParam(r, "ctc"),
		}
		respond(r.Context(), w, run, command, args)
	}
}

func handleLoadRoute(run CommandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRouteBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "route document too large")
			return
		}
		respond(r.Context(), w, run, handlers.CmdRouteLoad, []string{string(body)})
	}
}

func respond(ctx context.Context, w http.ResponseWriter, run CommandFunc, command string, args []string) {
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, "commands unavailable")
		return
	}
	res, err := run(ctx, command, args)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, handlers.ErrBadArguments), errors.Is(err, playback.ErrEmptyRoute):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrNotPlaying), errors.Is(err, playback.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, handlers.ErrNoBackend), errors.Is(err, handlers.ErrNotPlanner):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
