// Package tracker holds the stateful trackers behind threshold and
// correlation rules: a sliding window of prior matches, keyed by
// (rule.id, group_key), shared across all detection workers and
// protected by a per-bucket lock.
package tracker

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// maxBucketEntries bounds memory per bucket; overflow drops the
// oldest entry (ring-buffer semantics) rather than growing unbounded.
const maxBucketEntries = 10000

// janitorInterval is the sweep cadence for empty buckets.
const janitorInterval = 60 * time.Second

var conditionPattern = regexp.MustCompile(`^(count|unique_\S+)\s*(>=|>)\s*(\d+)$`)

// thresholdBucket holds event timestamps and, for unique_<field>
// conditions, the field value observed alongside each timestamp.
type thresholdBucket struct {
	mu        sync.Mutex
	times     []time.Time
	fieldVals []string
	lastSeen  time.Time
	timeframe time.Duration
}

// ThresholdTracker evaluates `count`/`unique_<field>` conditions over
// a sliding window, one bucket per (rule.id, group_key).
type ThresholdTracker struct {
	mu      sync.Mutex
	buckets map[string]*thresholdBucket
	logger  *slog.Logger
}

// NewThresholdTracker builds an empty tracker.
func NewThresholdTracker(logger *slog.Logger) *ThresholdTracker {
	return &ThresholdTracker{
		buckets: make(map[string]*thresholdBucket),
		logger:  logger.With("component", "threshold-tracker"),
	}
}

// Submit records the event against the rule's bucket and reports
// whether the condition now holds. fieldValue is the dotted-path value
// named by detection.unique_count, used only when the condition's
// metric is a unique_<label> form; for a plain count condition it is
// ignored.
func (t *ThresholdTracker) Submit(rule *types.Rule, groupKey string, now time.Time, fieldValue string) (bool, error) {
	metric, op, target, err := parseCondition(rule.Detection.Condition)
	if err != nil {
		return false, err
	}

	bucket := t.bucketFor(rule.ID, groupKey)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.timeframe = rule.Timeframe()
	bucket.times = append(bucket.times, now)
	bucket.fieldVals = append(bucket.fieldVals, fieldValue)
	if len(bucket.times) > maxBucketEntries {
		overflow := len(bucket.times) - maxBucketEntries
		bucket.times = bucket.times[overflow:]
		bucket.fieldVals = bucket.fieldVals[overflow:]
	}

	cutoff := now.Add(-rule.Timeframe())
	bucket.times, bucket.fieldVals = pruneThreshold(bucket.times, bucket.fieldVals, cutoff)
	bucket.lastSeen = now

	var value int
	if metric == "count" {
		value = len(bucket.times)
	} else {
		value = countDistinct(bucket.fieldVals)
	}

	switch op {
	case ">":
		return value > target, nil
	case ">=":
		return value >= target, nil
	default:
		return false, fmt.Errorf("unsupported threshold operator %q", op)
	}
}

func (t *ThresholdTracker) bucketFor(ruleID, groupKey string) *thresholdBucket {
	key := ruleID + "\x00" + groupKey

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		b = &thresholdBucket{}
		t.buckets[key] = b
	}
	return b
}

// Sweep removes buckets that have been empty for at least 2x their
// own rule's timeframe. Intended to run on a periodic janitor task.
func (t *ThresholdTracker) Sweep() {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, b := range t.buckets {
		b.mu.Lock()
		empty := len(b.times) == 0 && b.timeframe > 0 && b.lastSeen.Before(now.Add(-2*b.timeframe))
		b.mu.Unlock()
		if empty {
			delete(t.buckets, key)
		}
	}
}

func pruneThreshold(times []time.Time, fields []string, cutoff time.Time) ([]time.Time, []string) {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:], fields[i:]
}

func countDistinct(vals []string) int {
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// parseCondition parses "<metric> <op> <N>" where metric is `count`
// or `unique_<field>` and op is `>` or `>=`.
func parseCondition(condition string) (metric, op string, target int, err error) {
	m := conditionPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return "", "", 0, fmt.Errorf("malformed threshold condition: %q", condition)
	}
	n, convErr := strconv.Atoi(m[3])
	if convErr != nil {
		return "", "", 0, fmt.Errorf("malformed threshold condition: %q", condition)
	}
	return m[1], m[2], n, nil
}
