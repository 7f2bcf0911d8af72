package status

import (
	"context"
	"fmt"
	"time"

	"hydrosnap/internal/types"
)

// LatestReadings is the batch lookup the Enricher needs.
type LatestReadings interface {
	// GetLatestReadingsBatch returns the newest reading per site id. Sites
	// without readings are absent from the map.
	GetLatestReadingsBatch(ctx context.Context, siteIDs []string) (map[string]*types.WaterLevelReading, error)
}

// Enricher hydrates sites with their derived status.
type Enricher struct {
	readings LatestReadings
	window   time.Duration
}

// NewEnricher creates an Enricher. A window of zero uses the default.
func NewEnricher(readings LatestReadings, window time.Duration) *Enricher {
	if window <= 0 {
		window = types.DefaultStalenessWindow
	}
	return &Enricher{readings: readings, window: window}
}

// Enrich classifies every site with a single batched reading lookup. The
// result preserves the order of sites.
func (e *Enricher) Enrich(ctx context.Context, sites []*types.MonitoringSite, now time.Time) ([]types.SiteWithStatus, error) {
	if len(sites) == 0 {
		return []types.SiteWithStatus{}, nil
	}

	ids := make([]string, 0, len(sites))
	seen := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		ids = append(ids, s.ID)
	}

	latest, err := e.readings.GetLatestReadingsBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching latest readings: %w", err)
	}

	out := make([]types.SiteWithStatus, 0, len(sites))
	for _, s := range sites {
		r := latest[s.ID]
		out = append(out, types.SiteWithStatus{
			Site:        s,
			Status:      ClassifyWithin(s.Thresholds, r, now, e.window),
			LastReading: r,
			Stale:       r != nil && IsStale(r, now, e.window),
		})
	}
	return out, nil
}
