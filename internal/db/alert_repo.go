package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"hydrosnap/internal/types"
)

// AlertRepository provides data access for the alerts table. The unique
// index on (site_id, user_id, alert_type, alert_day) is the dedup
// authority; Insert relies on it instead of a separate lock.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, site_id, user_id, alert_type, severity, message,
	water_level, threshold_level, is_read, is_notified, created_at, alert_day`

func scanAlert(row pgx.Row) (*types.Alert, error) {
	var a types.Alert
	err := row.Scan(
		&a.ID,
		&a.SiteID,
		&a.UserID,
		&a.AlertType,
		&a.Severity,
		&a.Message,
		&a.WaterLevel,
		&a.ThresholdLevel,
		&a.IsRead,
		&a.IsNotified,
		&a.CreatedAt,
		&a.AlertDay,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsToday reports whether an alert with the given dedup key exists.
func (r *AlertRepository) ExistsToday(ctx context.Context, siteID, userID string, alertType types.AlertType, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE site_id = $1 AND user_id = $2 AND alert_type = $3 AND alert_day = $4
		 )`,
		siteID, userID, string(alertType), day,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check existing alert", err)
	}
	return exists, nil
}

// Insert stores a new alert. When the dedup key is already taken nothing is
// written and a conflict_alert_exists error is returned.
func (r *AlertRepository) Insert(ctx context.Context, a *types.Alert) (*types.Alert, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO alerts
		 (id, site_id, user_id, alert_type, severity, message, water_level,
		  threshold_level, is_read, is_notified, created_at, alert_day)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()), $12)
		 ON CONFLICT (site_id, user_id, alert_type, alert_day) DO NOTHING
		 RETURNING created_at`,
		a.ID,
		a.SiteID,
		a.UserID,
		string(a.AlertType),
		string(a.Severity),
		a.Message,
		a.WaterLevel,
		a.ThresholdLevel,
		a.IsRead,
		a.IsNotified,
		nilIfZeroTime(a.CreatedAt),
		a.AlertDay,
	).Scan(&a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeConflictAlertExists,
			"an alert of this type already exists for today", err,
			map[string]any{"site_id": a.SiteID, "alert_type": string(a.AlertType)})
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create alert", err)
	}
	return a, nil
}

// MarkNotified flips is_notified. It is idempotent.
func (r *AlertRepository) MarkNotified(ctx context.Context, alertID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE alerts SET is_notified = TRUE WHERE id = $1`,
		alertID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert notified", err)
	}
	return nil
}

// MarkRead flips is_read for a user's alert.
func (r *AlertRepository) MarkRead(ctx context.Context, alertID, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		alertID, userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert read", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}

// ListForUser returns a user's alerts, newest first.
func (r *AlertRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*types.Alert, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+alertColumns+`
		 FROM alerts
		 WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, unreadOnly, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	defer rows.Close()

	alerts := []*types.Alert{}
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert row", scanErr)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating alert rows", err)
	}
	return alerts, nil
}
