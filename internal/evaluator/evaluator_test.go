package evaluator

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/internal/rules"
	"github.com/pilot-net/siem-pipeline/internal/tracker"
	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGetResolvesDottedPath(t *testing.T) {
	evt := &types.Event{
		Source: &types.Endpoint{IP: "10.0.0.5", Port: 4422},
		Event:  &types.EventMeta{Category: "authentication"},
	}

	v, ok := Get(evt, "source.ip")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", v)

	v, ok = Get(evt, "event.category")
	assert.True(t, ok)
	assert.Equal(t, "authentication", v)
}

func TestGetReportsAbsentForMissingNamespace(t *testing.T) {
	evt := &types.Event{}
	_, ok := Get(evt, "destination.ip")
	assert.False(t, ok)
}

func TestGetReportsAbsentForNilGeoSubfield(t *testing.T) {
	evt := &types.Event{Source: &types.Endpoint{IP: "1.2.3.4"}}
	_, ok := Get(evt, "source.geo.city_name")
	assert.False(t, ok)
}

func TestMatchesSelectionScalarList(t *testing.T) {
	evt := &types.Event{Event: &types.EventMeta{Category: "authentication"}}

	matched, err := matchesSelection(evt, map[string]types.Matcher{
		"event.category": []any{"authentication", "iam"},
	})
	assert.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchesSelectionRegexOperator(t *testing.T) {
	evt := &types.Event{URL: &types.URLInfo{Query: "q=UNION SELECT * FROM users"}}

	matched, err := matchesSelection(evt, map[string]types.Matcher{
		"url.query": map[string]any{"regex": "(?i)(union|select)"},
	})
	assert.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchesSelectionMissingFieldNeverMatches(t *testing.T) {
	evt := &types.Event{}
	matched, err := matchesSelection(evt, map[string]types.Matcher{
		"source.ip": "10.0.0.5",
	})
	assert.NoError(t, err)
	assert.False(t, matched)
}

func TestGroupKeyOfUsesNullForMissingFields(t *testing.T) {
	evt := &types.Event{Source: &types.Endpoint{IP: "10.0.0.9"}}
	key := groupKeyOf(evt, []string{"source.ip", "destination.ip"})
	assert.Equal(t, "10.0.0.9:null", key)
}

func TestEvaluateSkipsDisabledRules(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "r.yaml"), []byte(`
id: disabled-001
name: disabled rule
description: should never fire
severity: LOW
enabled: false
detection:
  selection:
    event.category: authentication
`), 0o644))

	store, err := rules.NewStore(dir, ".yaml", time.Hour, testLogger())
	assert.NoError(t, err)

	ev := New(store, tracker.NewThresholdTracker(testLogger()), tracker.NewCorrelationEngine(testLogger()), testLogger())
	alerts := ev.Evaluate(types.Event{Event: &types.EventMeta{Category: "authentication"}}, time.Now())
	assert.Empty(t, alerts)
}

func TestEvaluateEmitsSimpleRuleAlert(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "r.yaml"), []byte(`
id: web-001
name: SQL Injection Attempt
description: Detects common SQL injection patterns
severity: HIGH
detection:
  selection:
    url.query:
      regex: "(?i)(union|select)"
`), 0o644))

	store, err := rules.NewStore(dir, ".yaml", time.Hour, testLogger())
	assert.NoError(t, err)

	ev := New(store, tracker.NewThresholdTracker(testLogger()), tracker.NewCorrelationEngine(testLogger()), testLogger())
	alerts := ev.Evaluate(types.Event{URL: &types.URLInfo{Query: "q=UNION SELECT * FROM users"}}, time.Now())

	assert.Len(t, alerts, 1)
	assert.Equal(t, "web-001", alerts[0].Rule.ID)
	assert.Equal(t, types.SeverityHigh, alerts[0].Rule.Severity)
}
