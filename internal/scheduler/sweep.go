// Package scheduler implements the scheduled missed-reading sweep.
//
// The sweep runs hourly from cmd/sweeper. It finds active sites whose
// latest reading is missing or older than the staleness window and asks the
// alert engine to raise a missed_reading alert for each assigned user. The
// engine's per-day dedup makes repeated sweeps within a day harmless.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/status"
	"hydrosnap/internal/types"
)

// DefaultSweepConcurrency bounds concurrent engine evaluations.
const DefaultSweepConcurrency = 8

// SweepPayload is the event the sweeper Lambda receives. ReferenceTime
// overrides "now" for manual invocation and backfill.
type SweepPayload struct {
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// SiteSource lists what the sweep evaluates.
type SiteSource interface {
	ListActive(ctx context.Context) ([]*types.MonitoringSite, error)
	ListAssignees(ctx context.Context, siteIDs []string) (map[string][]string, error)
	GetLatestReadingsBatch(ctx context.Context, siteIDs []string) (map[string]*types.WaterLevelReading, error)
}

// Evaluator emits alerts. *alerts.Engine satisfies it.
type Evaluator interface {
	EvaluateAndEmit(ctx context.Context, tr alerts.Transition, now time.Time) (*types.Alert, error)
}

// SweepRecorder receives the number of overdue sites per run.
type SweepRecorder interface {
	RecordSweep(ctx context.Context, sitesDue int)
}

// SweepResult summarizes one run.
type SweepResult struct {
	SitesChecked  int `json:"sites_checked"`
	SitesDue      int `json:"sites_due"`
	AlertsCreated int `json:"alerts_created"`
	Failures      int `json:"failures"`
}

// MissedReadingSweep raises missed_reading alerts for overdue sites.
type MissedReadingSweep struct {
	sites       SiteSource
	engine      Evaluator
	metrics     SweepRecorder
	logger      types.Logger
	window      time.Duration
	concurrency int
}

// NewMissedReadingSweep creates a sweep. window <= 0 uses the default
// staleness window; concurrency <= 0 uses DefaultSweepConcurrency.
func NewMissedReadingSweep(sites SiteSource, engine Evaluator, metrics SweepRecorder, logger types.Logger, window time.Duration, concurrency int) *MissedReadingSweep {
	if logger == nil {
		logger = types.NopLogger{}
	}
	if window <= 0 {
		window = types.DefaultStalenessWindow
	}
	if concurrency <= 0 {
		concurrency = DefaultSweepConcurrency
	}
	return &MissedReadingSweep{
		sites:       sites,
		engine:      engine,
		metrics:     metrics,
		logger:      logger,
		window:      window,
		concurrency: concurrency,
	}
}

// Run evaluates every active site at now. A failure for one site and user
// is logged and counted without stopping the others; listing failures and
// context cancellation abort the run.
func (s *MissedReadingSweep) Run(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	sites, err := s.sites.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("list active sites: %w", err)
	}
	res.SitesChecked = len(sites)
	if len(sites) == 0 {
		return res, nil
	}

	ids := make([]string, len(sites))
	for i, site := range sites {
		ids[i] = site.ID
	}

	latest, err := s.sites.GetLatestReadingsBatch(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("load latest readings: %w", err)
	}

	var due []*types.MonitoringSite
	var dueIDs []string
	for _, site := range sites {
		if status.ClassifyWithin(site.Thresholds, latest[site.ID], now, s.window) == types.SiteStatusReadingDue {
			due = append(due, site)
			dueIDs = append(dueIDs, site.ID)
		}
	}
	res.SitesDue = len(due)
	if s.metrics != nil {
		s.metrics.RecordSweep(ctx, len(due))
	}
	if len(due) == 0 {
		return res, nil
	}

	assignees, err := s.sites.ListAssignees(ctx, dueIDs)
	if err != nil {
		return res, fmt.Errorf("list assignees: %w", err)
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, site := range due {
		for _, userID := range assignees[site.ID] {
			g.Go(func() error {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				alert, err := s.engine.EvaluateAndEmit(gCtx, alerts.Transition{
					Site:     site,
					UserID:   userID,
					Previous: types.SiteStatusReadingDue,
					Current:  types.SiteStatusReadingDue,
					Reading:  latest[site.ID],
				}, now)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					res.Failures++
					s.logger.Error("missed reading evaluation failed",
						"site_id", site.ID, "user_id", userID, "error", err.Error())
					return nil
				}
				if alert != nil {
					res.AlertsCreated++
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	s.logger.Info("missed reading sweep complete",
		"sites_checked", res.SitesChecked,
		"sites_due", res.SitesDue,
		"alerts_created", res.AlertsCreated,
		"failures", res.Failures,
	)
	return res, nil
}
