package alerts

import (
	"context"
	"time"

	"hydrosnap/internal/types"
)

// SiteRepository is the read side of site storage used by the engine and its
// callers.
type SiteRepository interface {
	// GetThresholds returns the configured levels for a site, or a
	// not_found_site AppError.
	GetThresholds(ctx context.Context, siteID string) (types.Thresholds, error)

	// GetLatestReading returns the newest reading for a site, or nil when the
	// site has none.
	GetLatestReading(ctx context.Context, siteID string) (*types.WaterLevelReading, error)

	// GetLatestReadingsBatch returns the newest reading per site in one
	// round trip. Sites without readings are absent from the map.
	GetLatestReadingsBatch(ctx context.Context, siteIDs []string) (map[string]*types.WaterLevelReading, error)
}

// AlertRepository persists alerts. It owns the dedup key
// (site_id, user_id, alert_type, alert_day).
type AlertRepository interface {
	ExistsToday(ctx context.Context, siteID, userID string, alertType types.AlertType, day time.Time) (bool, error)

	// Insert stores a. It must be atomic with respect to the dedup key: when
	// an equivalent row already exists it returns a conflict_alert_exists
	// AppError and writes nothing.
	Insert(ctx context.Context, a *types.Alert) (*types.Alert, error)

	MarkNotified(ctx context.Context, alertID string) error
}

// Notifier delivers a newly created alert. Implementations route by
// a.Severity.Urgency().
type Notifier interface {
	Dispatch(ctx context.Context, a *types.Alert) error
}

// Metrics receives engine outcomes. Implementations must not block.
type Metrics interface {
	AlertCreated(ctx context.Context, a *types.Alert)
	AlertDeduplicated(ctx context.Context, siteID string, alertType types.AlertType)
}

type nopMetrics struct{}

func (nopMetrics) AlertCreated(context.Context, *types.Alert)                 {}
func (nopMetrics) AlertDeduplicated(context.Context, string, types.AlertType) {}
