package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/types"
)

// Doer sends HTTP requests. *external.BaseClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookNotifier POSTs each alert to a fixed URL, signed with
// HMAC-SHA256. The body layout follows the detected chat platform.
type WebhookNotifier struct {
	client    Doer
	url       string
	secret    types.SecretString
	platform  Platform
	formatter Formatter
	clock     types.Clock
	logger    types.Logger
}

var _ alerts.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a WebhookNotifier. An empty secret sends
// unsigned requests.
func NewWebhookNotifier(client Doer, url string, secret types.SecretString, clock types.Clock, logger types.Logger) *WebhookNotifier {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	p := DetectPlatform(url, "")
	return &WebhookNotifier{
		client:    client,
		url:       url,
		secret:    secret,
		platform:  p,
		formatter: formatterFor(p),
		clock:     clock,
		logger:    logger,
	}
}

// WithPlatform forces the body layout. Unknown names keep the detected one.
func (w *WebhookNotifier) WithPlatform(name string) *WebhookNotifier {
	p := DetectPlatform(w.url, name)
	w.platform = p
	w.formatter = formatterFor(p)
	return w
}

// Platform reports the layout in use.
func (w *WebhookNotifier) Platform() Platform { return w.platform }

// Dispatch implements alerts.Notifier. Any non-2xx response is an error.
func (w *WebhookNotifier) Dispatch(ctx context.Context, a *types.Alert) error {
	body, err := w.formatter.Format(types.NewAlertMessage(a, types.GetRequestID(ctx)))
	if err != nil {
		return fmt.Errorf("webhook notifier: marshal alert %s: %w", a.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook notifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hydrosnap-Event", "alert."+string(a.AlertType))
	if !w.secret.IsZero() {
		req.Header.Set(SignatureHeader, Sign(body, w.secret.Unmask(), w.clock.Now()))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if err := w.formatter.ValidateResponse(resp.StatusCode, respBody); err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable, err.Error(), err,
			map[string]any{"alert_id": a.ID, "status": resp.StatusCode, "platform": string(w.platform)})
	}

	w.logger.Info("alert delivered to webhook", "alert_id", a.ID, "status", resp.StatusCode)
	return nil
}
