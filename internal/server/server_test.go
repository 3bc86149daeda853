package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/dispatcher"
	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/handlers"
	"github.com/cargotrack/routeplay/internal/logging"
	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/memory"
	"github.com/cargotrack/routeplay/internal/storage/storagetest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type call struct {
	command string
	args    []string
}

// fakeCommands records every call and answers with result or err.
type fakeCommands struct {
	calls  []call
	result any
	err    error
}

func (f *fakeCommands) run(_ context.Context, command string, args []string) (any, error) {
	f.calls = append(f.calls, call{command: command, args: args})
	return f.result, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRoutes_MapToCommands(t *testing.T) {
	f := &fakeCommands{result: map[string]string{"ok": "yes"}}
	r := NewRouter(Dependencies{Logger: quiet, Commands: f.run})

	tests := []struct {
		method string
		path   string
		body   string
		want   call
	}{
		{http.MethodGet, "/api/playback/status", "", call{handlers.CmdPlaybackStatus, nil}},
		{http.MethodPost, "/api/playback/pause", "", call{handlers.CmdPlaybackPause, nil}},
		{http.MethodPost, "/api/playback/resume", "", call{handlers.CmdPlaybackResume, nil}},
		{http.MethodPost, "/api/playback/stop", "", call{handlers.CmdPlaybackStop, nil}},
		{http.MethodPost, "/api/playback/01/1/123456", "", call{handlers.CmdPlaybackStart, []string{"01", "1", "123456"}}},
		{http.MethodPost, "/api/playback", `{"ctc":"1"}`, call{handlers.CmdRouteLoad, []string{`{"ctc":"1"}`}}},
		{http.MethodGet, "/api/routes", "", call{handlers.CmdRouteList, nil}},
		{http.MethodPost, "/api/routes/01/1/9/confirm", "", call{handlers.CmdRouteConfirm, []string{"01", "1", "9"}}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			f.calls = nil
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, f.calls, 1)
			assert.Equal(t, tt.want, f.calls[0])
			assert.Equal(t, "yes", decode(t, w)["ok"])
		})
	}
}

func TestRoutes_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: nope", handlers.ErrBadArguments), http.StatusBadRequest},
		{playback.ErrEmptyRoute, http.StatusBadRequest},
		{fmt.Errorf("loading: %w", storage.ErrRouteNotFound), http.StatusNotFound},
		{playback.ErrNotPlaying, http.StatusConflict},
		{playback.ErrNotPaused, http.StatusConflict},
		{handlers.ErrNoBackend, http.StatusNotImplemented},
		{handlers.ErrNotPlanner, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := &fakeCommands{err: tt.err}
			r := NewRouter(Dependencies{Logger: quiet, Commands: f.run})
			w := do(t, r, http.MethodPost, "/api/playback/stop", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.err.Error(), decode(t, w)["error"])
		})
	}
}

func TestRoutes_NoCommands(t *testing.T) {
	r := NewRouter(Dependencies{Logger: quiet})
	w := do(t, r, http.MethodGet, "/api/playback/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_BodyTooLarge(t *testing.T) {
	f := &fakeCommands{}
	r := NewRouter(Dependencies{Logger: quiet, Commands: f.run})
	w := do(t, r, http.MethodPost, "/api/playback", strings.Repeat("x", maxRouteBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, f.calls)
}

func TestHealthcheck(t *testing.T) {
	r := NewRouter(Dependencies{Logger: quiet})
	w := do(t, r, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	r = NewRouter(Dependencies{Logger: quiet, Checks: map[string]Checker{
		"storage": func(context.Context) error { return nil },
		"influx":  func(context.Context) error { return errors.New("unreachable") },
	}})
	w = do(t, r, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"storage": "ok", "influx": "unreachable"}, body["checks"])
}

func TestStreamMounted(t *testing.T) {
	stream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r := NewRouter(Dependencies{Logger: quiet, Stream: stream})
	assert.Equal(t, http.StatusTeapot, do(t, r, http.MethodGet, "/ws", "").Code)

	r = NewRouter(Dependencies{Logger: quiet})
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/ws", "").Code)
}

func TestRoutes_EndToEnd(t *testing.T) {
	sched := frame.NewManual(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), 100*time.Millisecond)
	rec := display.NewRecorder(display.DashboardLayout(2))
	session, err := playback.NewSession(sched, rec, playback.DefaultConfig(), quiet)
	require.NoError(t, err)

	backend := memory.New(config.MemoryConfig{})
	require.NoError(t, backend.Init())
	require.NoError(t, backend.SaveRoute(context.Background(), storagetest.SampleRoute("123456")))

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	handlers.NewService(handlers.Dependencies{Session: session, Runner: sched, Backend: backend}).Register(d)

	r := NewRouter(Dependencies{Logger: quiet, Commands: d.Run})

	w := do(t, r, http.MethodPost, "/api/playback/01/1/123456", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "starting", decode(t, w)["phase"])

	sched.Advance(2 * time.Second)
	w = do(t, r, http.MethodPost, "/api/playback/pause", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paused", decode(t, w)["phase"])

	w = do(t, r, http.MethodPost, "/api/playback/pause", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/api/playback/01/1/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/routes/01/1/123456/confirm", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(t, r, http.MethodGet, "/api/playback/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "01-1-123456", decode(t, w)["route"])
}

func TestServer_RunShutdown(t *testing.T) {
	s := New("127.0.0.1:0", Dependencies{Logger: quiet})
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
