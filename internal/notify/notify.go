// Package notify implements the alert manager's outbound notification
// channels: Slack, PagerDuty, email, and generic webhooks. Each
// channel paces its own outbound calls with a rate limiter, the same
// way the control plane's Flight Deck API client paces queries.
package notify

import (
	"context"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// secretResolver is the subset of secrets.Resolver notifiers depend
// on, kept narrow so tests can fake it without importing the secrets
// package.
type secretResolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

func severityColor(sev types.Severity) string {
	switch sev {
	case types.SeverityCritical:
		return "danger"
	case types.SeverityHigh:
		return "warning"
	case types.SeverityMedium:
		return "#FFA500"
	case types.SeverityLow:
		return "good"
	default:
		return "#808080"
	}
}
