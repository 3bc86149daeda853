// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB, reloading the last dump on start and the dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cargotrack/routeplay/internal/database"
	gormstorage "github.com/cargotrack/routeplay/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		log:     logger,
	}, nil
}

// Init restores the last dump, initializes the embedded GORM backend and
// starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.restore(); err != nil {
		return err
	}
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the
// embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		return b.Dump()
	}
	return nil
}

// Dump writes the database to DumpPath now.
func (b *Backend) Dump() error {
	b.Backend.Flush()
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// restore copies the routes of an earlier dump into the in-memory DB.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); err != nil {
		return nil
	}

	disk, err := database.GetSqliteDB(b.cfg.DumpPath)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", b.cfg.DumpPath, err)
	}
	defer func() {
		if sqlDB, err := disk.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if !disk.Migrator().HasTable(&gormstorage.RouteRecord{}) {
		return nil
	}
	var recs []gormstorage.RouteRecord
	if err := disk.Find(&recs).Error; err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	if err := b.db.AutoMigrate(gormstorage.Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if len(recs) > 0 {
		if err := b.db.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to restore routes: %w", err)
		}
	}
	b.log.Info("Restored routes from dump", "path", b.cfg.DumpPath, "count", len(recs))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
