// Package postgres implements the storage.Backend interface on a PostgreSQL
// server through the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/cargotrack/routeplay/internal/database"
	gormstorage "github.com/cargotrack/routeplay/internal/storage/gorm"
)

// Backend connects on Init and delegates everything else to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg database.Config
	log *slog.Logger
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(cfg database.Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, log: logger}
}

// Init connects, validates the connection and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.GetPostgresDB(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.log.Info("Connected to Postgres", "host", b.cfg.Host, "database", b.cfg.Database)
	return nil
}

// Close stops the writer and closes the pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
