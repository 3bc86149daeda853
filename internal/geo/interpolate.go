package geo

import (
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
)

// Interpolate returns the position at elapsed along the straight line from
// start to end travelled in total. The fraction is clamped to [0, 1], and a
// non-positive total means the end has already been reached.
func Interpolate(start, end core.GeoCoordinate, total, elapsed time.Duration) core.GeoCoordinate {
	if total <= 0 || elapsed >= total {
		return end
	}
	if elapsed <= 0 {
		return start
	}
	f := float64(elapsed) / float64(total)
	return core.GeoCoordinate{
		Lat: start.Lat + (end.Lat-start.Lat)*f,
		Lon: start.Lon + (end.Lon-start.Lon)*f,
	}
}
