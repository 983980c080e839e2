package alertmgr

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeNotifier struct {
	name    string
	enabled bool

	mu  sync.Mutex
	got []types.Alert
	err error
}

func (f *fakeNotifier) Name() string    { return f.name }
func (f *fakeNotifier) Enabled() bool   { return f.enabled }
func (f *fakeNotifier) Send(_ context.Context, alert types.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, alert)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func criticalAlert(ruleID string) types.Alert {
	return types.Alert{
		Timestamp: time.Now(),
		Rule:      types.RuleRef{ID: ruleID, Severity: types.SeverityCritical},
		Event: types.Event{
			Source:      &types.Endpoint{IP: "10.0.0.1"},
			Destination: &types.Endpoint{IP: "10.0.0.2"},
		},
	}
}

func newTestManager(notifiers map[string]Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		dedup:     NewDeduplicator(300 * time.Second),
		throttle:  NewThrottler(600*time.Second, 100),
		metrics:   noopMetricsSink{},
		logger:    testLogger(),
	}
}

func TestProcessRoutesCriticalToAllThreeChannels(t *testing.T) {
	slack := &fakeNotifier{name: "slack", enabled: true}
	pager := &fakeNotifier{name: "pagerduty", enabled: true}
	email := &fakeNotifier{name: "email", enabled: true}
	m := newTestManager(map[string]Notifier{"slack": slack, "pagerduty": pager, "email": email})

	m.Process(context.Background(), criticalAlert("auth-001"))

	assert.Equal(t, 1, slack.count())
	assert.Equal(t, 1, pager.count())
	assert.Equal(t, 1, email.count())
}

func TestProcessRoutesLowSeverityToNoChannel(t *testing.T) {
	email := &fakeNotifier{name: "email", enabled: true}
	m := newTestManager(map[string]Notifier{"email": email})

	alert := criticalAlert("info-001")
	alert.Rule.Severity = types.SeverityLow
	m.Process(context.Background(), alert)

	assert.Equal(t, 0, email.count())
}

func TestProcessSkipsDisabledNotifier(t *testing.T) {
	email := &fakeNotifier{name: "email", enabled: false}
	m := newTestManager(map[string]Notifier{"email": email})

	alert := criticalAlert("auth-002")
	alert.Rule.Severity = types.SeverityMedium
	m.Process(context.Background(), alert)

	assert.Equal(t, 0, email.count())
}

func TestProcessSuppressesDuplicateWithinDedupWindow(t *testing.T) {
	email := &fakeNotifier{name: "email", enabled: true}
	m := newTestManager(map[string]Notifier{"email": email})

	alert := criticalAlert("auth-003")
	alert.Rule.Severity = types.SeverityMedium

	m.Process(context.Background(), alert)
	m.Process(context.Background(), alert)

	assert.Equal(t, 1, email.count())
}

func TestProcessThrottlesAfterMaxDeliveries(t *testing.T) {
	email := &fakeNotifier{name: "email", enabled: true}
	m := &Manager{
		notifiers: map[string]Notifier{"email": email},
		dedup:     NewDeduplicator(0),
		throttle:  NewThrottler(600*time.Second, 2),
		metrics:   noopMetricsSink{},
		logger:    testLogger(),
	}

	for i := 0; i < 5; i++ {
		alert := types.Alert{
			Rule: types.RuleRef{ID: "auth-004", Severity: types.SeverityMedium},
			Event: types.Event{
				Source:      &types.Endpoint{IP: "10.0.0.1"},
				Destination: &types.Endpoint{IP: "10.0.0.2"},
			},
		}
		m.Process(context.Background(), alert)
	}

	assert.Equal(t, 2, email.count())
}
