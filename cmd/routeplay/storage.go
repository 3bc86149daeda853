package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/cargotrack/routeplay/internal/api"
	"github.com/cargotrack/routeplay/internal/cache"
	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/database"
	"github.com/cargotrack/routeplay/internal/parser"
	"github.com/cargotrack/routeplay/internal/server"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/storage/apistore"
	gormstorage "github.com/cargotrack/routeplay/internal/storage/gorm"
	"github.com/cargotrack/routeplay/internal/storage/memory"
	pgstorage "github.com/cargotrack/routeplay/internal/storage/postgres"
	sqlitestorage "github.com/cargotrack/routeplay/internal/storage/sqlite"
)

// storageDeps is what the backends are built from.
type storageDeps struct {
	Logger  *slog.Logger
	ZLogger zerolog.Logger
	Parser  *parser.Parser
	// Checks receives a health check per remote dependency.
	Checks map[string]server.Checker
}

// initStorage creates the configured backend, initializes it and puts the
// route cache in front of it.
func initStorage(storageCfg config.StorageConfig, deps storageDeps) (*cache.Backend, error) {
	backend, err := createStorageBackend(storageCfg, deps)
	if err != nil {
		deps.Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		deps.Logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, err
	}
	deps.Logger.Info("Storage backend ready", "type", storageCfg.Type, "cacheTTL", storageCfg.CacheTTL)
	return cache.WithRoutes(backend, cache.NewRouteCache(storageCfg.CacheTTL)), nil
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		dbCfg := database.ConfigFromViper()
		deps.Logger.Info("Postgres storage backend selected", "host", dbCfg.Host)
		return pgstorage.New(dbCfg, deps.Logger), nil

	case "database":
		// Postgres when reachable, otherwise the SQLite dump file.
		mgr := database.NewManager(deps.ZLogger, storageCfg.SQLite.DumpPath)
		if err := mgr.Connect(database.ConfigFromViper()); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		deps.Checks["database"] = func(ctx context.Context) error { return mgr.SqlDB.PingContext(ctx) }
		return &managedBackend{
			Backend: gormstorage.New(gormstorage.Dependencies{DB: mgr.DB, Logger: deps.Logger}),
			mgr:     mgr,
		}, nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend selected", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "api":
		client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		deps.Checks["dashboard"] = func(context.Context) error { return client.Healthcheck() }
		deps.Logger.Info("Dashboard API storage backend selected", "url", viper.GetString("api.serverUrl"))
		return apistore.New(client, deps.Parser, deps.Logger), nil

	case "memory", "":
		deps.Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// managedBackend closes the database manager's pool after the GORM backend.
type managedBackend struct {
	*gormstorage.Backend
	mgr *database.Manager
}

func (b *managedBackend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.mgr.Close()
}
