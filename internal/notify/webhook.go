package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// WebhookNotifier posts the raw alert JSON to an arbitrary HTTP
// endpoint, for integrations the other channels don't cover.
type WebhookNotifier struct {
	secretName  string
	secrets     secretResolver
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewWebhookNotifier builds a generic webhook notifier. secretName
// resolves the target URL.
func NewWebhookNotifier(secretName string, secrets secretResolver, ratePerMinute int, logger *slog.Logger) *WebhookNotifier {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &WebhookNotifier{
		secretName:  secretName,
		secrets:     secrets,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		logger:      logger.With("component", "notify_webhook"),
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Enabled() bool {
	url, err := w.secrets.GetSecret(context.Background(), w.secretName)
	return err == nil && url != ""
}

// Send POSTs alert as JSON to the configured webhook URL.
func (w *WebhookNotifier) Send(ctx context.Context, alert types.Alert) error {
	url, err := w.secrets.GetSecret(ctx, w.secretName)
	if err != nil {
		return fmt.Errorf("resolving webhook url: %w", err)
	}
	if url == "" {
		return fmt.Errorf("webhook url not configured")
	}

	if err := w.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
