// Package notify delivers live-monitoring alerts to an external webhook.
// Delivery is best effort: the monitor journals every alert before handing
// it to the notifier, so a lost webhook call never loses the record.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/util"
)

// Notifier pushes a single alert to wherever the operator wants to see it.
type Notifier interface {
	Send(ctx context.Context, alert domain.Alert) error
}

// New picks a notifier from config. An empty webhook URL disables delivery
// entirely rather than failing at send time.
func New(cfg config.NotifyConfig, log *slog.Logger) Notifier {
	if cfg.WebhookURL == "" {
		log.Info("webhook notifications disabled, alerts will only be journaled")
		return NoopNotifier{}
	}
	return NewWebhookNotifier(cfg.WebhookURL, cfg.MaxAttempts, log)
}

// ---------------------------------------------------------------------------
// Webhook notifier
// ---------------------------------------------------------------------------

// WebhookNotifier POSTs alerts as JSON to a fixed URL. Failed sends are
// retried with exponential backoff before giving up.
type WebhookNotifier struct {
	client      *resty.Client
	url         string
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier builds a notifier for the given webhook URL.
// maxAttempts values below 1 are clamped to a single attempt.
func NewWebhookNotifier(url string, maxAttempts int, log *slog.Logger) *WebhookNotifier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &WebhookNotifier{
		client:      resty.New().SetTimeout(10 * time.Second),
		url:         url,
		maxAttempts: maxAttempts,
		baseDelay:   time.Second,
		log:         log.With("component", "notify"),
	}
}

// Send posts the alert, retrying transient failures. A non-2xx response
// counts as a failure and is surfaced with the response body.
func (n *WebhookNotifier) Send(ctx context.Context, alert domain.Alert) error {
	attempt := func() error {
		resp, err := n.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(alert).
			Post(n.url)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
		}
		return nil
	}

	if err := util.Retry(ctx, n.maxAttempts, n.baseDelay, attempt); err != nil {
		return fmt.Errorf("notify %s: %w", alert.Symbol, err)
	}

	n.log.Debug("alert delivered", "symbol", alert.Symbol, "strategy", alert.Strategy)
	return nil
}

// ---------------------------------------------------------------------------
// Noop notifier
// ---------------------------------------------------------------------------

// NoopNotifier drops every alert. Used when no webhook is configured.
type NoopNotifier struct{}

var _ Notifier = NoopNotifier{}

// Send discards the alert.
func (NoopNotifier) Send(context.Context, domain.Alert) error { return nil }
