package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// correlationEntry pairs a retained event with its arrival time, kept
// for the correlated-alert payload.
type correlationEntry struct {
	timestamp time.Time
	event     types.Event
}

type correlationBucket struct {
	mu        sync.Mutex
	entries   []correlationEntry
	lastSeen  time.Time
	timeframe time.Duration
}

// CorrelationEngine fires when at least min_events selection-matching
// events land in the same window for a group key.
type CorrelationEngine struct {
	mu      sync.Mutex
	buckets map[string]*correlationBucket
	logger  *slog.Logger
}

// NewCorrelationEngine builds an empty engine.
func NewCorrelationEngine(logger *slog.Logger) *CorrelationEngine {
	return &CorrelationEngine{
		buckets: make(map[string]*correlationBucket),
		logger:  logger.With("component", "correlation-engine"),
	}
}

// Submit appends evt to the rule's bucket and reports whether
// min_events has now been reached within the window.
func (c *CorrelationEngine) Submit(rule *types.Rule, groupKey string, now time.Time, evt types.Event) bool {
	bucket := c.bucketFor(rule.ID, groupKey)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.timeframe = rule.Timeframe()
	bucket.entries = append(bucket.entries, correlationEntry{timestamp: now, event: evt})
	if len(bucket.entries) > maxBucketEntries {
		bucket.entries = bucket.entries[len(bucket.entries)-maxBucketEntries:]
	}

	cutoff := now.Add(-rule.Timeframe())
	bucket.entries = pruneCorrelation(bucket.entries, cutoff)
	bucket.lastSeen = now

	minEvents := 2
	if rule.Correlation != nil && rule.Correlation.MinEvents > 0 {
		minEvents = rule.Correlation.MinEvents
	}
	return len(bucket.entries) >= minEvents
}

func (c *CorrelationEngine) bucketFor(ruleID, groupKey string) *correlationBucket {
	key := ruleID + "\x00" + groupKey

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok {
		b = &correlationBucket{}
		c.buckets[key] = b
	}
	return b
}

// Sweep removes buckets empty for at least 2x their own rule's timeframe.
func (c *CorrelationEngine) Sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, b := range c.buckets {
		b.mu.Lock()
		empty := len(b.entries) == 0 && b.timeframe > 0 && b.lastSeen.Before(now.Add(-2*b.timeframe))
		b.mu.Unlock()
		if empty {
			delete(c.buckets, key)
		}
	}
}

func pruneCorrelation(entries []correlationEntry, cutoff time.Time) []correlationEntry {
	i := 0
	for i < len(entries) && entries[i].timestamp.Before(cutoff) {
		i++
	}
	return entries[i:]
}
