// Package notify implements alert delivery channels behind alerts.Notifier:
// an SQS queue split by urgency, a signed webhook, a CloudWatch-metered
// wrapper and a fan-out composite.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueNotifier publishes alerts to SQS. High-urgency alerts go to the
// urgent queue so push and SMS workers can drain it ahead of the rest.
type QueueNotifier struct {
	client      SQSSender
	urgentURL   string
	standardURL string
	logger      types.Logger
}

var _ alerts.Notifier = (*QueueNotifier)(nil)

// NewQueueNotifier creates a QueueNotifier. An empty urgentURL sends
// everything to standardURL.
func NewQueueNotifier(client SQSSender, urgentURL, standardURL string, logger types.Logger) *QueueNotifier {
	if urgentURL == "" {
		urgentURL = standardURL
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &QueueNotifier{
		client:      client,
		urgentURL:   urgentURL,
		standardURL: standardURL,
		logger:      logger,
	}
}

// QueueFor returns the queue URL an urgency level routes to.
func (q *QueueNotifier) QueueFor(u types.UrgencyLevel) string {
	if u == types.UrgencyHigh {
		return q.urgentURL
	}
	return q.standardURL
}

// Dispatch implements alerts.Notifier.
func (q *QueueNotifier) Dispatch(ctx context.Context, a *types.Alert) error {
	msg := types.NewAlertMessage(a, types.GetRequestID(ctx))
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue notifier: marshal alert %s: %w", a.ID, err)
	}

	queueURL := q.QueueFor(msg.Urgency)
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"AlertType": {DataType: aws.String("String"), StringValue: aws.String(string(a.AlertType))},
			"Urgency":   {DataType: aws.String("String"), StringValue: aws.String(string(msg.Urgency))},
		},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to publish alert to %s", queueURL), err)
	}

	q.logger.Info("alert published",
		"alert_id", a.ID,
		"urgency", string(msg.Urgency),
		"queue_url", queueURL,
		"trace_id", msg.TraceID,
	)
	return nil
}
