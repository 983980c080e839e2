package alertmgr

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"

	"github.com/pilot-net/siem-pipeline/internal/queue"
)

// Notifier is a capability: something that can deliver an alert and
// report whether it is currently enabled. Modeled as a small interface
// (Name, Enabled, Send) so channels compose without inheritance.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, alert types.Alert) error
}

// severityChannels is the fixed severity-to-channel routing table.
var severityChannels = map[types.Severity][]string{
	types.SeverityCritical: {"pagerduty", "slack", "email"},
	types.SeverityHigh:     {"slack", "email"},
	types.SeverityMedium:   {"email"},
	types.SeverityLow:      {},
}

// MetricsSink receives delivery-pipeline counters. health.Metrics
// satisfies this without alertmgr importing the health package.
type MetricsSink interface {
	IncAlertsDeduped()
	IncAlertsThrottled()
	IncAlertsDelivered()
}

type noopMetricsSink struct{}

func (noopMetricsSink) IncAlertsDeduped()   {}
func (noopMetricsSink) IncAlertsThrottled() {}
func (noopMetricsSink) IncAlertsDelivered() {}

// Manager pops alerts from the queue, deduplicates and throttles
// them, and fans them out to the channels their severity routes to.
type Manager struct {
	queue     *queue.Client
	notifiers map[string]Notifier
	dedup     *Deduplicator
	throttle  *Throttler
	metrics   MetricsSink
	logger    *slog.Logger
}

// Config holds the manager's tunables.
type Config struct {
	DedupWindow    time.Duration
	ThrottleWindow time.Duration
	ThrottleMax    int
}

// New builds a Manager. notifiers is keyed by channel name
// ("slack", "pagerduty", "email", "webhook"). metrics may be nil.
func New(q *queue.Client, notifiers map[string]Notifier, cfg Config, metrics MetricsSink, logger *slog.Logger) *Manager {
	if metrics == nil {
		metrics = noopMetricsSink{}
	}
	return &Manager{
		queue:     q,
		notifiers: notifiers,
		dedup:     NewDeduplicator(cfg.DedupWindow),
		throttle:  NewThrottler(cfg.ThrottleWindow, cfg.ThrottleMax),
		metrics:   metrics,
		logger:    logger.With("component", "alert-manager"),
	}
}

// RunWorker pops from alerts:queue until ctx is canceled, processing
// each alert independently; one bad alert never blocks the next.
func (m *Manager) RunWorker(ctx context.Context, pollInterval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, ok, err := m.queue.PopRight(ctx, queue.ListAlerts)
		if err != nil {
			m.logger.Error("queue pop failed", "error", err)
			time.Sleep(pollInterval)
			continue
		}
		if !ok {
			time.Sleep(pollInterval)
			continue
		}

		var alert types.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			m.logger.Error("discarding unparseable alert", "error", err)
			continue
		}

		m.Process(ctx, alert)
	}
}

// RunSweeper periodically evicts stale dedup entries until ctx is canceled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.dedup.Sweep(time.Now())
		}
	}
}

// Process applies dedup, throttle, and severity-routed dispatch to a
// single alert.
func (m *Manager) Process(ctx context.Context, alert types.Alert) {
	now := time.Now()

	if m.dedup.IsDuplicate(alert, now) {
		m.metrics.IncAlertsDeduped()
		m.logger.Debug("duplicate alert suppressed", "rule_id", alert.Rule.ID)
		return
	}

	if m.throttle.ShouldThrottle(alert.Rule.ID, now) {
		m.metrics.IncAlertsThrottled()
		m.logger.Debug("alert throttled", "rule_id", alert.Rule.ID)
		return
	}

	channels := severityChannels[alert.Rule.Severity]
	m.dispatch(ctx, channels, alert)
	m.metrics.IncAlertsDelivered()

	m.logger.Info("alert processed", "rule_id", alert.Rule.ID, "severity", alert.Rule.Severity, "channels", channels)
}

// dispatch sends alert to every named channel in parallel. Per-channel
// failures are isolated and logged, never retried within this process.
func (m *Manager) dispatch(ctx context.Context, channels []string, alert types.Alert) {
	var wg sync.WaitGroup
	for _, name := range channels {
		notifier, ok := m.notifiers[name]
		if !ok || !notifier.Enabled() {
			continue
		}
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Send(ctx, alert); err != nil {
				m.logger.Error("notification failed", "channel", n.Name(), "rule_id", alert.Rule.ID, "error", err)
			}
		}(notifier)
	}
	wg.Wait()
}
