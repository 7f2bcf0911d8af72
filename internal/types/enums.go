package types

// SiteStatus is the derived health of a monitoring site.
type SiteStatus string

const (
	SiteStatusNormal     SiteStatus = "normal"
	SiteStatusWarning    SiteStatus = "warning"
	SiteStatusDanger     SiteStatus = "danger"
	SiteStatusReadingDue SiteStatus = "reading_due"
)

// AlertType identifies what an Alert was raised for.
type AlertType string

const (
	AlertTypeWarning       AlertType = "warning"
	AlertTypeDanger        AlertType = "danger"
	AlertTypeMissedReading AlertType = "missed_reading"
	AlertTypePrepared      AlertType = "prepared"
)

// Severity of an Alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// UrgencyLevel drives channel routing for notifications.
type UrgencyLevel string

const (
	UrgencyNormal UrgencyLevel = "normal"
	UrgencyHigh   UrgencyLevel = "high"
)

// Urgency maps a severity to its dispatch urgency. Only danger-grade
// severities use the high-priority channel.
func (s Severity) Urgency() UrgencyLevel {
	switch s {
	case SeverityHigh, SeverityCritical:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}
