package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticResolver map[string]string

func (s staticResolver) GetSecret(_ context.Context, name string) (string, error) {
	return s[name], nil
}

func testAlert() types.Alert {
	return types.Alert{
		Timestamp: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		Rule: types.RuleRef{
			ID:          "auth-001",
			Name:        "SSH Brute Force",
			Description: "threshold exceeded",
			Severity:    types.SeverityCritical,
		},
		Event: types.Event{
			Source:      &types.Endpoint{IP: "203.0.113.9"},
			Destination: &types.Endpoint{IP: "10.0.0.5"},
		},
	}
}

func TestSlackNotifierPostsAttachmentWithColorAndFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resolver := staticResolver{"slack-webhook": srv.URL}
	n := NewSlackNotifier("slack-webhook", resolver, 6000, testLogger())

	assert.True(t, n.Enabled())
	err := n.Send(context.Background(), testAlert())
	assert.NoError(t, err)

	attachments := got["attachments"].([]any)
	assert.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]any)
	assert.Equal(t, "danger", attachment["color"])
	assert.Contains(t, attachment["title"], "SSH Brute Force")
}

func TestSlackNotifierDisabledWithoutWebhook(t *testing.T) {
	n := NewSlackNotifier("slack-webhook", staticResolver{}, 60, testLogger())
	assert.False(t, n.Enabled())
}

func TestPagerDutyNotifierSkipsBelowThreshold(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	resolver := staticResolver{"pagerduty-key": "routing-key-123"}
	n := NewPagerDutyNotifier("pagerduty-key", resolver, types.SeverityCritical, 6000, testLogger())
	n.eventsURL = srv.URL

	alert := testAlert()
	alert.Rule.Severity = types.SeverityMedium

	err := n.Send(context.Background(), alert)
	assert.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestPagerDutyNotifierTriggersAtOrAboveThreshold(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	resolver := staticResolver{"pagerduty-key": "routing-key-123"}
	n := NewPagerDutyNotifier("pagerduty-key", resolver, types.SeverityHigh, 6000, testLogger())
	n.eventsURL = srv.URL

	err := n.Send(context.Background(), testAlert())
	assert.NoError(t, err)
	assert.Equal(t, "trigger", got["event_action"])
	assert.Equal(t, "routing-key-123", got["routing_key"])
}

func TestWebhookNotifierPostsAlertJSON(t *testing.T) {
	var got types.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resolver := staticResolver{"webhook-url": srv.URL}
	n := NewWebhookNotifier("webhook-url", resolver, 6000, testLogger())

	alert := testAlert()
	err := n.Send(context.Background(), alert)
	assert.NoError(t, err)
	assert.Equal(t, alert.Rule.ID, got.Rule.ID)
}

func TestEmailNotifierSendsViaSMTP(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewEmailNotifier(SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "siem@example.com",
		To:   []string{"soc@example.com"},
	}, staticResolver{}, 6000, testLogger())

	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.Send(context.Background(), testAlert())
	assert.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "siem@example.com", gotFrom)
	assert.Equal(t, []string{"soc@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "SSH Brute Force")
}

func TestEmailNotifierDisabledWithoutHost(t *testing.T) {
	n := NewEmailNotifier(SMTPConfig{}, staticResolver{}, 60, testLogger())
	assert.False(t, n.Enabled())
}
