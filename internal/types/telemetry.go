package types

// Telemetry metric names for CloudWatch.
const (
	MetricAlertCreated         = "AlertCreated"
	MetricAlertDeduplicated    = "AlertDeduplicated"
	MetricNotificationDispatch = "NotificationDispatch"
	MetricCredentialRejected   = "CredentialRejected"
	MetricSweepSitesDue        = "SweepSitesDue"

	DimAlertType = "AlertType"
	DimUrgency   = "Urgency"
	DimResult    = "Result"
	DimReason    = "Reason"

	MetricNamespace = "HydroSnap"
)
