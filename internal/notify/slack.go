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

// SlackNotifier posts alerts to a Slack incoming webhook as a colored
// attachment.
type SlackNotifier struct {
	secretName  string
	secrets     secretResolver
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewSlackNotifier builds a Slack notifier. secretName is the
// credential name passed to secrets.Resolver to retrieve the webhook
// URL; ratePerMinute bounds outbound posts.
func NewSlackNotifier(secretName string, secrets secretResolver, ratePerMinute int, logger *slog.Logger) *SlackNotifier {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &SlackNotifier{
		secretName:  secretName,
		secrets:     secrets,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		logger:      logger.With("component", "notify_slack"),
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Enabled reports whether a webhook URL is currently configured.
func (s *SlackNotifier) Enabled() bool {
	url, err := s.secrets.GetSecret(context.Background(), s.secretName)
	return err == nil && url != ""
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send posts alert to the configured webhook URL.
func (s *SlackNotifier) Send(ctx context.Context, alert types.Alert) error {
	webhookURL, err := s.secrets.GetSecret(ctx, s.secretName)
	if err != nil {
		return fmt.Errorf("resolving slack webhook: %w", err)
	}
	if webhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	sourceIP, destIP := "-", "-"
	if alert.Event.Source != nil {
		sourceIP = alert.Event.Source.IP
	}
	if alert.Event.Destination != nil {
		destIP = alert.Event.Destination.IP
	}

	payload := slackPayload{
		Attachments: []slackAttachment{{
			Color: severityColor(alert.Rule.Severity),
			Title: fmt.Sprintf("[%s] %s", alert.Rule.Severity, alert.Rule.Name),
			Text:  alert.Rule.Description,
			Fields: []slackField{
				{Title: "Source IP", Value: sourceIP, Short: true},
				{Title: "Destination IP", Value: destIP, Short: true},
				{Title: "Severity", Value: string(alert.Rule.Severity), Short: true},
			},
			Footer: "SIEM Alert",
			Ts:     alert.Timestamp.Unix(),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
