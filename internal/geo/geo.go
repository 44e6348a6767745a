package geo

import (
	"fmt"
	"math"

	"github.com/umahmood/haversine"
)

// Position is a WGS-84 point in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks coordinate ranges.
func (p Position) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", p.Lon)
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two positions.
// Degrees are not uniform-length, so comparisons must never be done on raw
// coordinate deltas.
func DistanceMeters(a, b Position) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km * 1000
}

const metersPerDegreeLat = 111_320.0

// BoundingBox returns a degree box that fully contains the circle of
// radiusMeters around center. Used as a cheap SQL prefilter; candidates
// still get an exact DistanceMeters check.
func BoundingBox(center Position, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusMeters / metersPerDegreeLat
	minLat = center.Lat - dLat
	maxLat = center.Lat + dLat

	lonScale := math.Cos(center.Lat * math.Pi / 180)
	if lonScale < 0.01 {
		// near the poles every longitude is close; widen to the whole range
		return minLat, maxLat, -180, 180
	}
	dLon := radiusMeters / (metersPerDegreeLat * lonScale)
	return minLat, maxLat, center.Lon - dLon, center.Lon + dLon
}
