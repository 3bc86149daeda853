// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/storagetest"
	"github.com/cargotrack/routeplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

func TestBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		b := New(config.MemoryConfig{})
		require.NoError(t, b.Init())
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestBackend_OnDisk(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: true})
		require.NoError(t, b.Init())
		return b
	})
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if b.routes == nil {
		t.Error("routes map not initialized")
	}
}

func TestSaveRoute_WritesFile(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		file     string
	}{
		{"plain", false, "01-1-555.json"},
		{"gzip", true, "01-1-555.json.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: tt.compress})
			require.NoError(t, b.Init())
			require.NoError(t, b.SaveRoute(context.Background(), storagetest.SampleRoute("555")))

			_, err := os.Stat(filepath.Join(dir, tt.file))
			assert.NoError(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp file should be renamed away")
		})
	}
}

func TestInit_ReloadsSavedRoutes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, first.Init())
	require.NoError(t, first.SaveRoute(ctx, storagetest.SampleRoute("700")))
	require.NoError(t, first.Close())

	second := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, second.Init())
	got, err := second.LoadRoute(ctx, core.ShipmentKey{Branch: "01", Series: "1", Number: "700"})
	require.NoError(t, err)
	assert.Equal(t, "Manaus", got.Destination.Name)

	// saving uncompressed drops the gzip copy
	require.NoError(t, second.SaveRoute(ctx, got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01-1-700.json", entries[0].Name())
}

func TestInit_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	b := New(config.MemoryConfig{OutputDir: dir})
	assert.Error(t, b.Init())
}

func TestListRoutes_NewestFirst(t *testing.T) {
	b := New(config.MemoryConfig{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, b.SaveRoute(ctx, storagetest.SampleRoute("1")))
	now = now.Add(time.Minute)
	require.NoError(t, b.SaveRoute(ctx, storagetest.SampleRoute("2")))
	now = now.Add(time.Minute)
	require.NoError(t, b.SaveRoute(ctx, storagetest.SampleRoute("1")))

	keys, err := b.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "1", keys[0].Number)
	assert.Equal(t, "2", keys[1].Number)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "01-1-12_34", sanitizeFilename("01-1-12/34"))
	assert.Equal(t, "a_b_c", sanitizeFilename("a:b c"))
}
