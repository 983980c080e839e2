package tracker

import (
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func bruteForceRule() *types.Rule {
	r := &types.Rule{
		ID:   "auth-001",
		Type: types.RuleTypeThreshold,
		Detection: types.Detection{
			Condition: "count > 5",
			Timeframe: "5m",
			GroupBy:   []string{"source.ip"},
		},
	}
	r.SetTimeframe(5 * time.Minute)
	return r
}

func TestThresholdTrackerFiresOnlyAfterNPlus1(t *testing.T) {
	tr := NewThresholdTracker(testLogger())
	rule := bruteForceRule()
	now := time.Now()

	for i := 0; i < 5; i++ {
		fired, err := tr.Submit(rule, "185.234.218.45", now.Add(time.Duration(i)*time.Second), "")
		assert.NoError(t, err)
		assert.False(t, fired, "must not fire at event %d", i+1)
	}

	fired, err := tr.Submit(rule, "185.234.218.45", now.Add(6*time.Second), "")
	assert.NoError(t, err)
	assert.True(t, fired, "must fire at the 6th event")
}

func TestThresholdTrackerUniqueCountMetric(t *testing.T) {
	tr := NewThresholdTracker(testLogger())
	rule := &types.Rule{
		ID: "net-001",
		Detection: types.Detection{
			Condition:   "unique_ports > 50",
			Timeframe:   "1m",
			GroupBy:     []string{"source.ip"},
			UniqueCount: []string{"destination.port"},
		},
	}
	rule.SetTimeframe(time.Minute)

	now := time.Now()
	var fired bool
	for port := 1; port <= 51; port++ {
		var err error
		fired, err = tr.Submit(rule, "10.0.0.9", now, strconv.Itoa(port))
		assert.NoError(t, err)
		if port < 51 {
			assert.False(t, fired)
		}
	}
	assert.True(t, fired)
}

func TestThresholdTrackerExpiresAfterWindow(t *testing.T) {
	tr := NewThresholdTracker(testLogger())
	rule := &types.Rule{
		ID:        "auth-001",
		Detection: types.Detection{Condition: "count > 1", Timeframe: "1s", GroupBy: []string{"source.ip"}},
	}
	rule.SetTimeframe(time.Second)

	now := time.Now()
	tr.Submit(rule, "1.2.3.4", now, "")
	fired, _ := tr.Submit(rule, "1.2.3.4", now, "")
	assert.True(t, fired)

	fired, _ = tr.Submit(rule, "1.2.3.4", now.Add(2*time.Second), "")
	assert.False(t, fired)
}

func TestCorrelationEngineFiresAtMinEvents(t *testing.T) {
	eng := NewCorrelationEngine(testLogger())
	rule := &types.Rule{
		ID:          "corr-001",
		Type:        types.RuleTypeCorrelation,
		Correlation: &types.Correlation{MinEvents: 3},
	}
	rule.SetTimeframe(time.Minute)

	now := time.Now()
	assert.False(t, eng.Submit(rule, "group-a", now, types.Event{}))
	assert.False(t, eng.Submit(rule, "group-a", now, types.Event{}))
	assert.True(t, eng.Submit(rule, "group-a", now, types.Event{}))
}
