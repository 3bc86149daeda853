package gormstorage

import (
	"time"

	"gorm.io/datatypes"
)

// RouteRecord is one stored route. The full document lives in Document; the
// other columns are there for listing and ad-hoc queries.
type RouteRecord struct {
	ID          uint      `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"index"`
	Branch      string    `gorm:"size:16;uniqueIndex:idx_route_key"`
	Series      string    `gorm:"size:16;uniqueIndex:idx_route_key"`
	Number      string    `gorm:"size:32;uniqueIndex:idx_route_key"`
	Origin      string    `gorm:"size:128"`
	Destination string    `gorm:"size:128"`
	Flights     int
	LengthDeg   float64
	Geometry    string // WKT line through every stop
	Document    datatypes.JSON
}

func (RouteRecord) TableName() string {
	return "routes"
}

// StatusRecord is one playback status sample.
type StatusRecord struct {
	ID        uint      `gorm:"primarykey"`
	Time      time.Time `gorm:"index"`
	SessionID string    `gorm:"size:64;index"`
	Route     string    `gorm:"size:64"`
	Phase     string    `gorm:"size:16"`
	Index     int
	Total     int
	Loops     int
	Lat       float64
	Lon       float64
}

func (StatusRecord) TableName() string {
	return "playback_status"
}

// Models lists every table of the backend for AutoMigrate.
var Models = []any{
	&RouteRecord{},
	&StatusRecord{},
}
