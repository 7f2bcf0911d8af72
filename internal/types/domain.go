package types

import (
	"time"
)

// GeoPoint is an immutable coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
}

// Valid reports whether the point lies inside the WGS84 ranges.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= MinLat && p.Latitude <= MaxLat &&
		p.Longitude >= MinLon && p.Longitude <= MaxLon
}

// Thresholds are the water levels (cm) a site is classified against.
// Monotonically increasing by convention; not enforced.
type Thresholds struct {
	SafeLevel    float64 `json:"safe_level" db:"safe_level"`
	WarningLevel float64 `json:"warning_level" db:"warning_level"`
	DangerLevel  float64 `json:"danger_level" db:"danger_level"`
}

// MonitoringSite is a persisted gauge location. Status and LastReading are
// hydrated per request and never written back.
type MonitoringSite struct {
	ID                   string     `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Location             string     `json:"location" db:"location"`
	Coordinates          GeoPoint   `json:"coordinates" db:"-"`
	Thresholds           Thresholds `json:"levels" db:"-"`
	GeofenceRadiusMeters float64    `json:"geofence_radius_m" db:"geofence_radius_m"`
	IsActive             bool       `json:"is_active" db:"is_active"`
	OrganizationID       string     `json:"organization_id" db:"organization_id"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// WaterLevelReading is a single field submission. Immutable once stored.
type WaterLevelReading struct {
	ID                     string    `json:"id" db:"id"`
	SiteID                 string    `json:"site_id" db:"site_id"`
	UserID                 string    `json:"user_id" db:"user_id"`
	Level                  float64   `json:"level" db:"level"`
	SubmittedAt            time.Time `json:"submitted_at" db:"submitted_at"`
	Position               *GeoPoint `json:"position,omitempty" db:"-"`
	DistanceFromSiteMeters *float64  `json:"distance_from_site_m,omitempty" db:"distance_from_site_m"`
}

// Alert is a persisted threshold-crossing or missed-reading notice.
// Only IsRead and IsNotified change after creation.
type Alert struct {
	ID             string    `json:"id" db:"id"`
	SiteID         string    `json:"site_id" db:"site_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	AlertType      AlertType `json:"alert_type" db:"alert_type"`
	Severity       Severity  `json:"severity" db:"severity"`
	Message        string    `json:"message" db:"message"`
	WaterLevel     *float64  `json:"water_level,omitempty" db:"water_level"`
	ThresholdLevel *float64  `json:"threshold_level,omitempty" db:"threshold_level"`
	IsRead         bool      `json:"is_read" db:"is_read"`
	IsNotified     bool      `json:"is_notified" db:"is_notified"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// AlertDay is the calendar day the dedup key is computed for.
	AlertDay time.Time `json:"-" db:"alert_day"`
}

// Levels mirrors the credential's level block.
type Levels struct {
	Safe    float64 `json:"safe"`
	Warning float64 `json:"warning"`
	Danger  float64 `json:"danger"`
}

// SiteCredentialPayload is the decoded content of a site QR credential.
type SiteCredentialPayload struct {
	SiteID               string    `json:"siteId"`
	Name                 string    `json:"name"`
	Location             string    `json:"location"`
	Coordinates          GeoPoint  `json:"coordinates"`
	Levels               Levels    `json:"levels"`
	GeofenceRadiusMeters float64   `json:"geofenceRadius"`
	QRCode               string    `json:"qrCode,omitempty"`
	IsActive             bool      `json:"isActive"`
	GeneratedAt          time.Time `json:"generatedAt"`
	ExpiresAt            time.Time `json:"expiresAt"`
	ValidationHash       string    `json:"validationHash"`

	// IntegrityWarning is set when ValidationHash does not match the
	// recomputed digest. Never part of the wire format.
	IntegrityWarning bool `json:"-"`
}

// Thresholds returns the payload's level block as classifier thresholds.
func (p *SiteCredentialPayload) Thresholds() Thresholds {
	return Thresholds{
		SafeLevel:    p.Levels.Safe,
		WarningLevel: p.Levels.Warning,
		DangerLevel:  p.Levels.Danger,
	}
}

// SiteWithStatus is a site hydrated with its derived status.
type SiteWithStatus struct {
	Site        *MonitoringSite    `json:"site"`
	Status      SiteStatus         `json:"status"`
	LastReading *WaterLevelReading `json:"last_reading,omitempty"`
	Stale       bool               `json:"stale"`
}
