package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Result dimension values.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// CloudWatchMetrics emits engine, delivery and sweep counters. Publishing
// failures are logged and never returned.
//
// Metrics emitted:
//   - AlertCreated: Dims {AlertType, Urgency}
//   - AlertDeduplicated: Dims {AlertType}
//   - NotificationDispatch: Dims {Urgency, Result}
//   - CredentialRejected: Dims {Reason}
//   - SweepSitesDue: no dims
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ alerts.Metrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a CloudWatchMetrics. An empty namespace uses
// types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// AlertCreated implements alerts.Metrics.
func (m *CloudWatchMetrics) AlertCreated(ctx context.Context, a *types.Alert) {
	m.put(ctx, types.MetricAlertCreated, 1,
		types.DimAlertType, string(a.AlertType),
		types.DimUrgency, string(a.Severity.Urgency()),
	)
}

// AlertDeduplicated implements alerts.Metrics.
func (m *CloudWatchMetrics) AlertDeduplicated(ctx context.Context, _ string, alertType types.AlertType) {
	m.put(ctx, types.MetricAlertDeduplicated, 1, types.DimAlertType, string(alertType))
}

// RecordDispatch counts a delivery attempt.
func (m *CloudWatchMetrics) RecordDispatch(ctx context.Context, urgency types.UrgencyLevel, result string) {
	m.put(ctx, types.MetricNotificationDispatch, 1,
		types.DimUrgency, string(urgency),
		types.DimResult, result,
	)
}

// RecordCredentialRejected counts a rejected scan by error code.
func (m *CloudWatchMetrics) RecordCredentialRejected(ctx context.Context, code types.ErrorCode) {
	m.put(ctx, types.MetricCredentialRejected, 1, types.DimReason, string(code))
}

// RecordSweep records how many sites a sweep found overdue.
func (m *CloudWatchMetrics) RecordSweep(ctx context.Context, sitesDue int) {
	m.put(ctx, types.MetricSweepSitesDue, float64(sitesDue))
}

// put publishes one Count datum. dims alternates name, value.
func (m *CloudWatchMetrics) put(ctx context.Context, name string, value float64, dims ...string) {
	datum := cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       cwtypes.StandardUnitCount,
	}
	for i := 0; i+1 < len(dims); i += 2 {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		m.logger.Error("failed to record metric", "metric", name, "error", err.Error())
	}
}

// DispatchRecorder is the slice of CloudWatchMetrics MeteredNotifier needs.
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, urgency types.UrgencyLevel, result string)
}

// MeteredNotifier counts every dispatch outcome of the wrapped notifier.
type MeteredNotifier struct {
	next    alerts.Notifier
	metrics DispatchRecorder
}

// NewMeteredNotifier wraps next.
func NewMeteredNotifier(next alerts.Notifier, metrics DispatchRecorder) *MeteredNotifier {
	return &MeteredNotifier{next: next, metrics: metrics}
}

// Dispatch implements alerts.Notifier.
func (m *MeteredNotifier) Dispatch(ctx context.Context, a *types.Alert) error {
	err := m.next.Dispatch(ctx, a)
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	m.metrics.RecordDispatch(ctx, a.Severity.Urgency(), result)
	return err
}
