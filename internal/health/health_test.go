package health

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSnapshotReportsGoroutinesAndUptime(t *testing.T) {
	r := NewReporter(nil, nil, testLogger())
	snap := r.Snapshot(context.Background())

	assert.Greater(t, snap.Goroutines, 0)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, int64(0))
}

func TestSnapshotReportsQueueDepthFromCallback(t *testing.T) {
	r := NewReporter(func(ctx context.Context) (int64, error) { return 42, nil }, nil, testLogger())
	snap := r.Snapshot(context.Background())
	assert.Equal(t, int64(42), snap.QueueDepth)
}

func TestMetricsIncrementAndSnapshot(t *testing.T) {
	m := &Metrics{}
	m.IncEventsProcessed()
	m.IncEventsProcessed()
	m.IncAlertsGenerated(3)
	m.IncAlertsThrottled()

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.EventsProcessed)
	assert.Equal(t, int64(3), s.AlertsGenerated)
	assert.Equal(t, int64(1), s.AlertsThrottled)
}
