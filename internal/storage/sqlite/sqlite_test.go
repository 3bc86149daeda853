package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend        = (*Backend)(nil)
	_ storage.StatusRecorder = (*Backend)(nil)
)

func TestBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		b, err := New(Config{}, nil)
		require.NoError(t, err)
		require.NoError(t, b.Init())
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestBackend_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "routes.db")
	route := storagetest.SampleRoute("900")

	first, err := New(Config{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Init())
	require.NoError(t, first.SaveRoute(ctx, route))
	require.NoError(t, first.Close())

	second, err := New(Config{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, second.Init())
	defer second.Close()

	got, err := second.LoadRoute(ctx, route.Key)
	require.NoError(t, err)
	assert.Equal(t, route.Destination.Name, got.Destination.Name)
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SaveRoute(context.Background(), storagetest.SampleRoute("1")))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}
