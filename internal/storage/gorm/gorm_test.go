package gormstorage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cargotrack/routeplay/internal/database"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/storagetest"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend        = (*Backend)(nil)
	_ storage.StatusRecorder = (*Backend)(nil)
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		return newTestBackend(t)
	})
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSaveRoute_Columns(t *testing.T) {
	b := newTestBackend(t)
	route := storagetest.SampleRoute("123456")
	require.NoError(t, b.SaveRoute(context.Background(), route))

	var rec RouteRecord
	require.NoError(t, b.DB().First(&rec).Error)
	assert.Equal(t, "01", rec.Branch)
	assert.Equal(t, "123456", rec.Number)
	assert.Equal(t, "Campinas", rec.Origin)
	assert.Equal(t, "Manaus", rec.Destination)
	assert.Equal(t, 2, rec.Flights)
	assert.Contains(t, rec.Geometry, "LINESTRING")
	assert.Greater(t, rec.LengthDeg, 20.0)
}

func TestSaveRoute_NoFlightsKeepsDocument(t *testing.T) {
	b := newTestBackend(t)
	route := &core.Route{
		Key:    core.ShipmentKey{Branch: "02", Series: "1", Number: "9"},
		Origin: core.Place{Name: "Recife"},
	}
	require.NoError(t, b.SaveRoute(context.Background(), route))

	got, err := b.LoadRoute(context.Background(), route.Key)
	require.NoError(t, err)
	assert.Equal(t, "Recife", got.Origin.Name)
	assert.Empty(t, got.Flights)
}

func TestRecordStatus_WrittenOnFlush(t *testing.T) {
	b := newTestBackend(t)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, b.RecordStatus(storage.StatusSample{
			SessionID: "s1",
			Route:     "01-1-123456",
			Phase:     "moving",
			Index:     i,
			Total:     5,
			Position:  core.GeoCoordinate{Lat: -23, Lon: -47},
			Time:      at.Add(time.Duration(i) * time.Second),
		}))
	}

	var n int64
	require.NoError(t, b.DB().Model(&StatusRecord{}).Count(&n).Error)
	assert.Equal(t, int64(0), n, "samples are queued until the writer runs")

	b.Flush()
	require.NoError(t, b.DB().Model(&StatusRecord{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)

	var last StatusRecord
	require.NoError(t, b.DB().Order("time desc").First(&last).Error)
	assert.Equal(t, 2, last.Index)
	assert.Equal(t, "01-1-123456", last.Route)
}

func TestClose_FlushesQueue(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordStatus(storage.StatusSample{SessionID: "s1", Phase: "dwell"}))
	require.NoError(t, b.Close())

	var n int64
	require.NoError(t, db.Model(&StatusRecord{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
