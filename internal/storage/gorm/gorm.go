// Package gormstorage implements storage.Backend on any GORM dialect. Routes
// are upserted synchronously; status samples are queued and written in
// batches by a background goroutine.
package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cargotrack/routeplay/internal/geo"
	"github.com/cargotrack/routeplay/internal/queue"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFlushInterval = 2 * time.Second
	// maxQueuedStatuses caps the samples kept while the database is down.
	maxQueuedStatuses = 10000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps     Dependencies
	statuses *queue.Queue[StatusRecord]
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:     deps,
		statuses: queue.NewBounded[StatusRecord](maxQueuedStatuses),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the status writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.statusWriter()
	return nil
}

// Close stops the status writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return nil
}

func (b *Backend) SaveRoute(ctx context.Context, r *core.Route) error {
	if r == nil || r.Key.IsZero() {
		return errors.New("route has no shipment key")
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	rec := RouteRecord{
		Branch:      r.Key.Branch,
		Series:      r.Key.Series,
		Number:      r.Key.Number,
		Origin:      r.Origin.Name,
		Destination: r.Destination.Name,
		Flights:     len(r.Flights),
		Document:    doc,
	}
	if ls, err := geo.RouteLine(routeVertices(r)); err == nil {
		rec.Geometry = geo.AsWKT(ls)
		rec.LengthDeg = geo.LineLength(ls)
	}

	err = b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "branch"}, {Name: "series"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "origin", "destination", "flights", "length_deg", "geometry", "document",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save route %s: %w", r.Key, err)
	}
	return nil
}

func (b *Backend) LoadRoute(ctx context.Context, key core.ShipmentKey) (*core.Route, error) {
	var rec RouteRecord
	err := b.deps.DB.WithContext(ctx).
		Where("branch = ? AND series = ? AND number = ?", key.Branch, key.Series, key.Number).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRouteNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load route %s: %w", key, err)
	}

	var r core.Route
	if err := json.Unmarshal(rec.Document, &r); err != nil {
		return nil, fmt.Errorf("failed to decode route %s: %w", key, err)
	}
	return &r, nil
}

func (b *Backend) ListRoutes(ctx context.Context) ([]core.ShipmentKey, error) {
	var recs []RouteRecord
	err := b.deps.DB.WithContext(ctx).
		Select("branch", "series", "number").
		Order("updated_at desc").Order("id desc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	keys := make([]core.ShipmentKey, len(recs))
	for i, rec := range recs {
		keys[i] = core.ShipmentKey{Branch: rec.Branch, Series: rec.Series, Number: rec.Number}
	}
	return keys, nil
}

// RecordStatus queues a status sample for the next batch write.
func (b *Backend) RecordStatus(s storage.StatusSample) error {
	b.statuses.Push(StatusRecord{
		Time:      s.Time,
		SessionID: s.SessionID,
		Route:     s.Route,
		Phase:     s.Phase,
		Index:     s.Index,
		Total:     s.Total,
		Loops:     s.Loops,
		Lat:       s.Position.Lat,
		Lon:       s.Position.Lon,
	})
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Failed to write queue", "queue", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items...)
		if n := q.Dropped(); n > 0 {
			log.Warn("Queue over limit, oldest items dropped", "queue", name, "dropped", n)
		}
		return
	}
	tx.Commit()
}

// statusWriter periodically drains the status queue into the DB.
func (b *Backend) statusWriter() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			writeQueue(b.deps.DB, b.statuses, "playback_status", b.deps.Logger)
			return
		case <-ticker.C:
			writeQueue(b.deps.DB, b.statuses, "playback_status", b.deps.Logger)
		}
	}
}

// Flush writes queued status samples now.
func (b *Backend) Flush() {
	writeQueue(b.deps.DB, b.statuses, "playback_status", b.deps.Logger)
}

func routeVertices(r *core.Route) []core.GeoCoordinate {
	pts := []core.GeoCoordinate{r.Origin.Position}
	for _, f := range r.Flights {
		pts = append(pts, f.Origin.Position, f.Destination.Position)
	}
	return append(pts, r.Destination.Position)
}
