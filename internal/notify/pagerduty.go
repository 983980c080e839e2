package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyNotifier triggers incidents via the PagerDuty Events API v2.
// It is gated by a minimum severity threshold, since PagerDuty paging
// is reserved for the alerts worth waking someone up for.
type PagerDutyNotifier struct {
	secretName  string
	secrets     secretResolver
	threshold   types.Severity
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	// eventsURL overrides pagerDutyEventsURL; used by tests.
	eventsURL string
}

// NewPagerDutyNotifier builds a PagerDuty notifier. threshold is the
// minimum severity (by types.Severity.Level) that triggers a page.
func NewPagerDutyNotifier(secretName string, secrets secretResolver, threshold types.Severity, ratePerMinute int, logger *slog.Logger) *PagerDutyNotifier {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &PagerDutyNotifier{
		secretName:  secretName,
		secrets:     secrets,
		threshold:   threshold,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		logger:      logger.With("component", "notify_pagerduty"),
		eventsURL:   pagerDutyEventsURL,
	}
}

func (p *PagerDutyNotifier) Name() string { return "pagerduty" }

func (p *PagerDutyNotifier) Enabled() bool {
	key, err := p.secrets.GetSecret(context.Background(), p.secretName)
	return err == nil && key != ""
}

type pagerDutyEvent struct {
	RoutingKey  string               `json:"routing_key"`
	EventAction string               `json:"event_action"`
	Payload     pagerDutyEventDetail `json:"payload"`
}

type pagerDutyEventDetail struct {
	Summary       string `json:"summary"`
	Severity      string `json:"severity"`
	Source        string `json:"source"`
	CustomDetails any    `json:"custom_details"`
}

// Send triggers a PagerDuty incident, or silently no-ops if alert's
// severity is below threshold.
func (p *PagerDutyNotifier) Send(ctx context.Context, alert types.Alert) error {
	if alert.Rule.Severity.Level() < p.threshold.Level() {
		return nil
	}

	routingKey, err := p.secrets.GetSecret(ctx, p.secretName)
	if err != nil {
		return fmt.Errorf("resolving pagerduty routing key: %w", err)
	}
	if routingKey == "" {
		return fmt.Errorf("pagerduty routing key not configured")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	event := pagerDutyEvent{
		RoutingKey:  routingKey,
		EventAction: "trigger",
		Payload: pagerDutyEventDetail{
			Summary:       fmt.Sprintf("%s: %s", alert.Rule.Name, alert.Rule.Description),
			Severity:      strings.ToLower(string(alert.Rule.Severity)),
			Source:        "SIEM",
			CustomDetails: alert.Event,
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling pagerduty event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.eventsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to pagerduty: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("pagerduty events api returned status %d", resp.StatusCode)
	}
	return nil
}
