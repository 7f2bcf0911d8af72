package types

import "time"

// AlertMessage is the queue envelope published for every newly created
// alert. Downstream delivery workers (push, SMS, email) consume it and
// route by Urgency.
type AlertMessage struct {
	AlertID   string       `json:"alert_id"`
	SiteID    string       `json:"site_id"`
	UserID    string       `json:"user_id"`
	AlertType AlertType    `json:"alert_type"`
	Severity  Severity     `json:"severity"`
	Urgency   UrgencyLevel `json:"urgency"`
	Message   string       `json:"message"`

	WaterLevel     *float64 `json:"water_level,omitempty"`
	ThresholdLevel *float64 `json:"threshold_level,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// NewAlertMessage builds the queue envelope for an alert.
func NewAlertMessage(a *Alert, traceID string) AlertMessage {
	return AlertMessage{
		AlertID:        a.ID,
		SiteID:         a.SiteID,
		UserID:         a.UserID,
		AlertType:      a.AlertType,
		Severity:       a.Severity,
		Urgency:        a.Severity.Urgency(),
		Message:        a.Message,
		WaterLevel:     a.WaterLevel,
		ThresholdLevel: a.ThresholdLevel,
		CreatedAt:      a.CreatedAt,
		TraceID:        traceID,
	}
}
