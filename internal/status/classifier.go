// Package status derives site health from thresholds and the latest reading.
//
// Status is never stored. It is recomputed on every query so that a site
// nobody has visited drifts to reading_due on its own.
package status

import (
	"time"

	"hydrosnap/internal/types"
)

// Classify returns the status of a site using the default staleness window.
func Classify(t types.Thresholds, latest *types.WaterLevelReading, now time.Time) types.SiteStatus {
	return ClassifyWithin(t, latest, now, types.DefaultStalenessWindow)
}

// ClassifyWithin is Classify with an explicit staleness window. A window of
// zero or less falls back to the default.
//
// A missing reading, or one older than window, is reading_due regardless of
// its level. Otherwise the level is compared against the danger and warning
// thresholds, inclusive.
func ClassifyWithin(t types.Thresholds, latest *types.WaterLevelReading, now time.Time, window time.Duration) types.SiteStatus {
	if latest == nil || IsStale(latest, now, window) {
		return types.SiteStatusReadingDue
	}
	return ByLevel(t, latest.Level)
}

// ByLevel classifies a level without regard to age.
func ByLevel(t types.Thresholds, level float64) types.SiteStatus {
	switch {
	case level >= t.DangerLevel:
		return types.SiteStatusDanger
	case level >= t.WarningLevel:
		return types.SiteStatusWarning
	default:
		return types.SiteStatusNormal
	}
}

// IsStale reports whether r is older than window at now.
func IsStale(r *types.WaterLevelReading, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = types.DefaultStalenessWindow
	}
	return now.Sub(r.SubmittedAt) > window
}
