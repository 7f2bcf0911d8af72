// Package geo implements the great-circle distance used for geofence checks.
// Sites are few enough that every check is a linear comparison; no spatial
// index is maintained.
package geo

import (
	"math"

	"hydrosnap/internal/types"
)

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6_371_000.0

// DistanceMeters returns the Haversine distance between a and b in meters.
// It is symmetric and returns 0 for identical points. NaN or Inf inputs
// propagate; callers validate coordinate ranges upstream.
func DistanceMeters(a, b types.GeoPoint) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h a hair past 1 for antipodal points.
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether p lies inside (or exactly on) the circle of
// radiusMeters around center, along with the measured distance.
func WithinRadius(center, p types.GeoPoint, radiusMeters float64) (bool, float64) {
	d := DistanceMeters(center, p)
	return d <= radiusMeters, d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
