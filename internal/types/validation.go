package types

import "time"

// Validation constraint constants.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0

	// MaxStatusBatch caps the number of site ids accepted by a single
	// status enrichment request.
	MaxStatusBatch = 200

	// DefaultStalenessWindow is how old a reading may get before its site
	// reverts to reading_due.
	DefaultStalenessWindow = 6 * time.Hour
)
