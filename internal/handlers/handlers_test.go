package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargotrack/routeplay/internal/cache"
	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/dispatcher"
	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/logging"
	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/memory"
	"github.com/cargotrack/routeplay/internal/storage/storagetest"
	"github.com/cargotrack/routeplay/pkg/core"
)

const routeDoc = `{
	"filial": "01", "serie": "1", "ctc": "123456",
	"origem": {"nome": "Campinas", "uf": "SP", "lat": -22.90, "lon": -47.06},
	"destino": {"nome": "Manaus", "uf": "AM", "lat": -3.13, "lon": -60.02},
	"rotas": [
		{
			"cia": "AZUL", "voo": "AD4050", "data": "02/03/2026",
			"horario_saida": "08:10", "horario_chegada": "09:45",
			"origem": {"iata": "VCP", "nome": "Viracopos", "lat": -23.00, "lon": -47.13},
			"destino": {"iata": "BSB", "nome": "Brasilia", "lat": -15.87, "lon": -47.92}
		}
	]
}`

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	sched   *frame.Manual
	rec     *display.Recorder
	backend storage.Backend
}

func newFixture(t *testing.T, backend storage.Backend) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := frame.NewManual(epoch, 100*time.Millisecond)
	rec := display.NewRecorder(display.DashboardLayout(1))
	session, err := playback.NewSession(sched, rec, playback.DefaultConfig(), quiet)
	require.NoError(t, err)

	logManager := logging.NewSlogManager()
	logManager.Setup(logging.Options{File: io.Discard, Level: "error"})

	svc := NewService(Dependencies{
		Session:    session,
		Runner:     sched,
		Backend:    backend,
		LogManager: logManager,
	})
	return &fixture{svc: svc, sched: sched, rec: rec, backend: backend}
}

func newMemoryBackend(t *testing.T) storage.Backend {
	t.Helper()
	b := memory.New(config.MemoryConfig{})
	require.NoError(t, b.Init())
	return b
}

func event(cmd string, args ...string) dispatcher.Event {
	return dispatcher.Event{Command: cmd, Args: args, Timestamp: epoch}
}

func TestLoadRoute_SavesAndPlays(t *testing.T) {
	f := newFixture(t, newMemoryBackend(t))
	ctx := context.Background()

	res, err := f.svc.LoadRoute(ctx, event(CmdRouteLoad, routeDoc))
	require.NoError(t, err)
	st, ok := res.(playback.Status)
	require.True(t, ok)
	assert.Equal(t, playback.PhaseStarting, st.Phase)
	assert.Equal(t, "01-1-123456", st.Route)

	stored, err := f.backend.LoadRoute(ctx, core.ShipmentKey{Branch: "01", Series: "1", Number: "123456"})
	require.NoError(t, err)
	assert.Len(t, stored.Flights, 1)

	_, drawn := f.rec.Overlay()
	assert.True(t, drawn)

	f.sched.Advance(2 * time.Second)
	assert.Equal(t, playback.PhaseMoving, f.svc.deps.Session.Status().Phase)
	assert.Len(t, f.rec.Markers(), 1)
}

func TestLoadRoute_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoadRoute(ctx, event(CmdRouteLoad))
	assert.True(t, errors.Is(err, ErrBadArguments))

	_, err = f.svc.LoadRoute(ctx, event(CmdRouteLoad, "  "))
	assert.True(t, errors.Is(err, ErrBadArguments))

	_, err = f.svc.LoadRoute(ctx, event(CmdRouteLoad, "{not json"))
	assert.True(t, errors.Is(err, ErrBadArguments))
	assert.Equal(t, playback.PhaseIdle, f.svc.deps.Session.Status().Phase)
}

func TestLoadRoute_WithoutBackendStillPlays(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.LoadRoute(context.Background(), event(CmdRouteLoad, routeDoc))
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseStarting, f.svc.deps.Session.Status().Phase)
}

func TestStartPlayback(t *testing.T) {
	backend := newMemoryBackend(t)
	require.NoError(t, backend.SaveRoute(context.Background(), storagetest.SampleRoute("777")))
	f := newFixture(t, backend)

	res, err := f.svc.StartPlayback(context.Background(), event(CmdPlaybackStart, "01", "1", "777"))
	require.NoError(t, err)
	assert.Equal(t, "01-1-777", res.(playback.Status).Route)
}

func TestStartPlayback_Errors(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	_, err := f.svc.StartPlayback(ctx, event(CmdPlaybackStart, "01", "1", "777"))
	assert.True(t, errors.Is(err, ErrNoBackend))

	f = newFixture(t, newMemoryBackend(t))
	_, err = f.svc.StartPlayback(ctx, event(CmdPlaybackStart, "01", "1"))
	assert.True(t, errors.Is(err, ErrBadArguments))

	_, err = f.svc.StartPlayback(ctx, event(CmdPlaybackStart, "01", " ", "777"))
	assert.True(t, errors.Is(err, ErrBadArguments))

	_, err = f.svc.StartPlayback(ctx, event(CmdPlaybackStart, "01", "1", "404"))
	assert.True(t, errors.Is(err, storage.ErrRouteNotFound))
}

func TestPauseResumeStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.PausePlayback(ctx, event(CmdPlaybackPause))
	assert.True(t, errors.Is(err, playback.ErrNotPlaying))

	_, err = f.svc.LoadRoute(ctx, event(CmdRouteLoad, routeDoc))
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)

	res, err := f.svc.PausePlayback(ctx, event(CmdPlaybackPause))
	require.NoError(t, err)
	assert.Equal(t, playback.PhasePaused, res.(playback.Status).Phase)

	_, pos := onlyMarker(t, f.rec)
	f.sched.Advance(time.Second)
	_, after := onlyMarker(t, f.rec)
	assert.Equal(t, pos, after, "paused marker does not move")

	res, err = f.svc.ResumePlayback(ctx, event(CmdPlaybackResume))
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseMoving, res.(playback.Status).Phase)

	_, err = f.svc.ResumePlayback(ctx, event(CmdPlaybackResume))
	assert.True(t, errors.Is(err, playback.ErrNotPaused))

	res, err = f.svc.StopPlayback(ctx, event(CmdPlaybackStop))
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseStopped, res.(playback.Status).Phase)
	assert.Zero(t, f.sched.Pending())
}

func TestPlaybackStatus(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.PlaybackStatus(context.Background(), event(CmdPlaybackStatus))
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseIdle, res.(playback.Status).Phase)
}

func TestListRoutes(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	_, err := f.svc.ListRoutes(ctx, event(CmdRouteList))
	assert.True(t, errors.Is(err, ErrNoBackend))

	f = newFixture(t, newMemoryBackend(t))
	res, err := f.svc.ListRoutes(ctx, event(CmdRouteList))
	require.NoError(t, err)
	assert.Equal(t, []core.ShipmentKey{}, res)

	require.NoError(t, f.backend.SaveRoute(ctx, storagetest.SampleRoute("1")))
	res, err = f.svc.ListRoutes(ctx, event(CmdRouteList))
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

// planningBackend confirms every route with a fixed plan id.
type planningBackend struct {
	storage.Backend
	confirmed []core.ShipmentKey
}

func (b *planningBackend) ConfirmRoute(_ context.Context, r *core.Route) (string, error) {
	b.confirmed = append(b.confirmed, r.Key)
	return "plan-42", nil
}

func TestConfirmRoute(t *testing.T) {
	ctx := context.Background()
	planner := &planningBackend{Backend: newMemoryBackend(t)}
	require.NoError(t, planner.SaveRoute(ctx, storagetest.SampleRoute("9")))
	f := newFixture(t, cache.WithRoutes(planner, cache.NewRouteCache(time.Minute)))

	res, err := f.svc.ConfirmRoute(ctx, event(CmdRouteConfirm, "01", "1", "9"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"route": "01-1-9", "planId": "plan-42"}, res)
	assert.Equal(t, []core.ShipmentKey{{Branch: "01", Series: "1", Number: "9"}}, planner.confirmed)
}

func TestConfirmRoute_NotPlanner(t *testing.T) {
	f := newFixture(t, newMemoryBackend(t))
	_, err := f.svc.ConfirmRoute(context.Background(), event(CmdRouteConfirm, "01", "1", "9"))
	assert.True(t, errors.Is(err, ErrNotPlanner))
}

func TestRegister_ThroughDispatcher(t *testing.T) {
	f := newFixture(t, newMemoryBackend(t))
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	f.svc.Register(d)
	for _, cmd := range []string{
		CmdRouteLoad, CmdRouteConfirm, CmdRouteList, CmdPlaybackStart,
		CmdPlaybackPause, CmdPlaybackResume, CmdPlaybackStop, CmdPlaybackStatus,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}

	res, err := d.Run(context.Background(), CmdRouteLoad, []string{routeDoc})
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseStarting, res.(playback.Status).Phase)
}

func onlyMarker(t *testing.T, rec *display.Recorder) (string, core.GeoCoordinate) {
	t.Helper()
	markers := rec.Markers()
	require.Len(t, markers, 1)
	for id, pos := range markers {
		return id, pos
	}
	return "", core.GeoCoordinate{}
}
