// Package alerts turns site status transitions into persisted, deduplicated
// alerts and hands them to a Notifier.
//
// The engine holds no mutable state. The per-day dedup guarantee rests on
// the AlertRepository: ExistsToday is a fast path, and Insert is the
// authority when concurrent submissions race.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hydrosnap/internal/status"
	"hydrosnap/internal/types"
)

// EngineConfig wires an Engine.
type EngineConfig struct {
	Alerts   AlertRepository
	Notifier Notifier
	Metrics  Metrics
	Logger   types.Logger

	// StalenessWindow is passed to the classifier. Zero uses the default.
	StalenessWindow time.Duration
	// DayLocation defines the calendar day used as dedup key. Nil means UTC.
	DayLocation *time.Location
	// NewID generates alert ids. Nil uses prefixed UUIDs.
	NewID func() string
}

// Engine evaluates transitions and emits alerts.
type Engine struct {
	alerts   AlertRepository
	notifier Notifier
	metrics  Metrics
	logger   types.Logger
	window   time.Duration
	dayLoc   *time.Location
	newID    func() string
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		alerts:   cfg.Alerts,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		window:   cfg.StalenessWindow,
		dayLoc:   cfg.DayLocation,
		newID:    cfg.NewID,
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.logger == nil {
		e.logger = types.NopLogger{}
	}
	if e.window <= 0 {
		e.window = types.DefaultStalenessWindow
	}
	if e.dayLoc == nil {
		e.dayLoc = time.UTC
	}
	if e.newID == nil {
		e.newID = func() string { return "alt_" + uuid.New().String() }
	}
	return e
}

// Transition is a site's status change as seen by one user.
type Transition struct {
	Site     *types.MonitoringSite
	UserID   string
	Previous types.SiteStatus
	Current  types.SiteStatus
	// Reading is the latest reading behind Current. It may be nil for
	// reading_due.
	Reading *types.WaterLevelReading
}

// ReadingEvent is a freshly stored reading together with the reading that
// was latest before it.
type ReadingEvent struct {
	Site     *types.MonitoringSite
	UserID   string
	Reading  *types.WaterLevelReading
	Previous *types.WaterLevelReading
}

// ProcessReading classifies the previous and new readings at now and
// evaluates the resulting transition. It returns the new status and the
// alert, if one was created.
func (e *Engine) ProcessReading(ctx context.Context, ev ReadingEvent, now time.Time) (*types.Alert, types.SiteStatus, error) {
	prev := status.ClassifyWithin(ev.Site.Thresholds, ev.Previous, now, e.window)
	cur := status.ClassifyWithin(ev.Site.Thresholds, ev.Reading, now, e.window)

	alert, err := e.EvaluateAndEmit(ctx, Transition{
		Site:     ev.Site,
		UserID:   ev.UserID,
		Previous: prev,
		Current:  cur,
		Reading:  ev.Reading,
	}, now)
	return alert, cur, err
}

// EvaluateAndEmit creates and dispatches an alert when tr warrants one.
// It returns nil when no alert is due: the status is normal, or an alert of
// the same type already exists for this site, user and day.
//
// Repository errors, including context cancellation, are returned
// unchanged. Notification failures are logged and leave the alert with
// IsNotified false.
func (e *Engine) EvaluateAndEmit(ctx context.Context, tr Transition, now time.Time) (*types.Alert, error) {
	candidate := e.candidate(tr, now)
	if candidate == nil {
		return nil, nil
	}

	log := e.logger.With(
		"site_id", candidate.SiteID,
		"user_id", candidate.UserID,
		"alert_type", string(candidate.AlertType),
	)

	// A repeated status needs no second alert today. A changed status still
	// goes through the same check; the dedup key is per type and day, so a
	// warning -> danger -> warning bounce yields one alert of each type.
	exists, err := e.alerts.ExistsToday(ctx, candidate.SiteID, candidate.UserID, candidate.AlertType, candidate.AlertDay)
	if err != nil {
		return nil, err
	}
	if exists {
		e.metrics.AlertDeduplicated(ctx, candidate.SiteID, candidate.AlertType)
		return nil, nil
	}

	created, err := e.alerts.Insert(ctx, candidate)
	if err != nil {
		if types.HasCode(err, types.ErrCodeConflictAlertExists) {
			log.Info("alert already created by a concurrent submission")
			e.metrics.AlertDeduplicated(ctx, candidate.SiteID, candidate.AlertType)
			return nil, nil
		}
		return nil, err
	}
	e.metrics.AlertCreated(ctx, created)
	log.Info("alert created",
		"alert_id", created.ID,
		"previous_status", string(tr.Previous),
		"status", string(tr.Current),
	)

	e.notify(ctx, created, log)
	return created, nil
}

// notify is best effort. The alert stays authoritative whatever happens
// here.
func (e *Engine) notify(ctx context.Context, a *types.Alert, log types.Logger) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Dispatch(ctx, a); err != nil {
		log.Error("alert notification failed",
			"alert_id", a.ID,
			"urgency", string(a.Severity.Urgency()),
			"error", err,
		)
		return
	}
	if err := e.alerts.MarkNotified(ctx, a.ID); err != nil {
		// Delivery happened; the reconciliation sweep may deliver again.
		log.Error("failed to mark alert notified", "alert_id", a.ID, "error", err)
		return
	}
	a.IsNotified = true
}

func (e *Engine) candidate(tr Transition, now time.Time) *types.Alert {
	a := &types.Alert{
		SiteID:    tr.Site.ID,
		UserID:    tr.UserID,
		CreatedAt: now.UTC(),
		AlertDay:  CalendarDay(now, e.dayLoc),
	}

	switch tr.Current {
	case types.SiteStatusWarning, types.SiteStatusDanger:
		a.AlertType = alertTypeFor(tr.Current)
		a.Severity = SeverityFor(a.AlertType)
		threshold := tr.Site.Thresholds.WarningLevel
		if tr.Current == types.SiteStatusDanger {
			threshold = tr.Site.Thresholds.DangerLevel
		}
		a.ThresholdLevel = &threshold
		if tr.Reading != nil {
			level := tr.Reading.Level
			a.WaterLevel = &level
		}
		a.Message = thresholdMessage(tr.Site, tr.Current, a.WaterLevel, threshold)

	case types.SiteStatusReadingDue:
		a.AlertType = types.AlertTypeMissedReading
		a.Severity = SeverityFor(a.AlertType)
		a.Message = missedReadingMessage(tr.Site, tr.Reading, e.window)

	default:
		return nil
	}

	a.ID = e.newID()
	return a
}

// CalendarDay returns the date of t in loc as a UTC midnight, the form the
// dedup key is stored in.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeverityFor maps an alert type to its severity. Danger is the only type
// routed to the high-priority channel.
func SeverityFor(t types.AlertType) types.Severity {
	switch t {
	case types.AlertTypeDanger:
		return types.SeverityHigh
	case types.AlertTypeWarning, types.AlertTypeMissedReading:
		return types.SeverityMedium
	default:
		return types.SeverityInfo
	}
}

func alertTypeFor(s types.SiteStatus) types.AlertType {
	if s == types.SiteStatusDanger {
		return types.AlertTypeDanger
	}
	return types.AlertTypeWarning
}

func thresholdMessage(site *types.MonitoringSite, s types.SiteStatus, level *float64, threshold float64) string {
	observed := "unknown"
	if level != nil {
		observed = fmt.Sprintf("%.1f cm", *level)
	}
	if s == types.SiteStatusDanger {
		return fmt.Sprintf("DANGER at %s: water level %s has reached the danger level of %.1f cm. Take immediate precautions.",
			site.Name, observed, threshold)
	}
	return fmt.Sprintf("Warning at %s: water level %s has reached the warning level of %.1f cm.",
		site.Name, observed, threshold)
}

func missedReadingMessage(site *types.MonitoringSite, last *types.WaterLevelReading, window time.Duration) string {
	if last == nil {
		return fmt.Sprintf("No reading has ever been submitted for %s. Please submit one.", site.Name)
	}
	return fmt.Sprintf("No reading for %s in the last %s. Last reading was %.1f cm on %s UTC.",
		site.Name, formatWindow(window), last.Level, last.SubmittedAt.UTC().Format("2006-01-02 15:04"))
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
