package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// SMTPConfig holds the server and recipient settings for EmailNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string

	// PasswordSecretName names the credential passed to the secrets
	// resolver for the SMTP account password.
	PasswordSecretName string
}

// EmailNotifier sends alerts as HTML email over SMTP.
type EmailNotifier struct {
	cfg         SMTPConfig
	secrets     secretResolver
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier builds an email notifier.
func NewEmailNotifier(cfg SMTPConfig, secrets secretResolver, ratePerMinute int, logger *slog.Logger) *EmailNotifier {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &EmailNotifier{
		cfg:         cfg,
		secrets:     secrets,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
		logger:      logger.With("component", "notify_email"),
		sendMail:    smtp.SendMail,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Enabled() bool {
	return e.cfg.Host != "" && e.cfg.From != "" && len(e.cfg.To) > 0
}

// Send delivers alert as a multipart HTML email.
func (e *EmailNotifier) Send(ctx context.Context, alert types.Alert) error {
	if !e.Enabled() {
		return fmt.Errorf("smtp not configured")
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		password, err := e.secrets.GetSecret(ctx, e.cfg.PasswordSecretName)
		if err != nil {
			return fmt.Errorf("resolving smtp password: %w", err)
		}
		auth = smtp.PlainAuth("", e.cfg.Username, password, e.cfg.Host)
	}

	msg := buildEmailMessage(e.cfg.From, e.cfg.To, alert)
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	return e.sendMail(addr, auth, e.cfg.From, e.cfg.To, msg)
}

func buildEmailMessage(from string, to []string, alert types.Alert) []byte {
	const boundary = "siem-alert-boundary"

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&body, "Subject: [%s] %s\r\n", alert.Rule.Severity, alert.Rule.Name)
	fmt.Fprintf(&body, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&body, "--%s\r\n", boundary)
	fmt.Fprintf(&body, "Content-Type: text/html; charset=UTF-8\r\n\r\n")

	fmt.Fprintf(&body, "<h2>%s</h2>", alert.Rule.Name)
	fmt.Fprintf(&body, "<p><b>Severity:</b> %s</p>", alert.Rule.Severity)
	fmt.Fprintf(&body, "<p><b>Description:</b> %s</p>", alert.Rule.Description)
	fmt.Fprintf(&body, "<p><b>Triggered:</b> %s</p>", alert.Timestamp.Format(time.RFC3339))
	eventJSON, _ := json.MarshalIndent(alert.Event, "", "  ")
	fmt.Fprintf(&body, "<pre>%s</pre>", eventJSON)
	fmt.Fprintf(&body, "\r\n--%s--\r\n", boundary)

	return body.Bytes()
}
