// Package evaluator matches events against the current rule snapshot
// and dispatches threshold/correlation rules to their trackers.
package evaluator

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pilot-net/siem-pipeline/pkg/types"

	"github.com/pilot-net/siem-pipeline/internal/rules"
	"github.com/pilot-net/siem-pipeline/internal/tracker"
)

// Evaluator iterates the current rule snapshot against each event and
// emits the alerts that result.
type Evaluator struct {
	store       *rules.Store
	threshold   *tracker.ThresholdTracker
	correlation *tracker.CorrelationEngine
	logger      *slog.Logger
}

// New builds an Evaluator bound to the given rule store and trackers.
func New(store *rules.Store, threshold *tracker.ThresholdTracker, correlation *tracker.CorrelationEngine, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		store:       store,
		threshold:   threshold,
		correlation: correlation,
		logger:      logger.With("component", "evaluator"),
	}
}

// Evaluate takes one atomic read of the current snapshot and returns
// the alerts this event triggers across all enabled rules. Rules are
// evaluated independently of each other's order.
func (e *Evaluator) Evaluate(evt types.Event, now time.Time) []types.Alert {
	snapshot := e.store.Snapshot()
	var alerts []types.Alert

	for _, rule := range snapshot.Rules {
		if !rule.IsEnabled() {
			continue
		}

		matched, err := matchesSelection(&evt, rule.Detection.Selection)
		if err != nil {
			e.logger.Warn("rule evaluation failed, skipping", "rule_id", rule.ID, "error", err)
			continue
		}
		if !matched {
			continue
		}

		fired, err := e.dispatch(rule, &evt, now)
		if err != nil {
			e.logger.Warn("rule dispatch failed, skipping", "rule_id", rule.ID, "error", err)
			continue
		}
		if !fired {
			continue
		}

		alerts = append(alerts, newAlert(rule, evt, now))
	}

	return alerts
}

func (e *Evaluator) dispatch(rule *types.Rule, evt *types.Event, now time.Time) (bool, error) {
	switch rule.EffectiveType() {
	case types.RuleTypeSimple:
		return true, nil
	case types.RuleTypeThreshold:
		groupKey := groupKeyOf(evt, rule.Detection.GroupBy)
		fieldValue := ""
		if len(rule.Detection.UniqueCount) > 0 {
			fieldValue = stringValueOf(evt, rule.Detection.UniqueCount[0])
		}
		return e.threshold.Submit(rule, groupKey, now, fieldValue)
	case types.RuleTypeCorrelation:
		groupKey := groupKeyOf(evt, rule.Detection.GroupBy)
		return e.correlation.Submit(rule, groupKey, now, *evt), nil
	default:
		return false, nil
	}
}

// matchesSelection reports whether evt satisfies every field:matcher
// pair in selection.
func matchesSelection(evt *types.Event, selection map[string]types.Matcher) (bool, error) {
	for field, matcher := range selection {
		value, present := Get(evt, field)

		switch m := matcher.(type) {
		case map[string]any:
			if !matchOperatorMap(m, value, present) {
				return false, nil
			}
		case []any:
			if !present || !inList(value, m) {
				return false, nil
			}
		default:
			if !present || !equalScalar(value, m) {
				return false, nil
			}
		}
	}
	return true, nil
}

// groupKeyOf concatenates the dotted-path values named by groupBy with
// ":", using the literal "null" for any missing path.
func groupKeyOf(evt *types.Event, groupBy []string) string {
	if len(groupBy) == 0 {
		return "null"
	}
	parts := make([]string, len(groupBy))
	for i, field := range groupBy {
		parts[i] = stringValueOf(evt, field)
	}
	return strings.Join(parts, ":")
}

func stringValueOf(evt *types.Event, field string) string {
	value, present := Get(evt, field)
	if !present {
		return "null"
	}
	return toString(value)
}

func newAlert(rule *types.Rule, evt types.Event, now time.Time) types.Alert {
	return types.Alert{
		ID:        uuid.New().String(),
		Timestamp: now.UTC(),
		Rule: types.RuleRef{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Severity:    rule.Severity,
			Category:    rule.Category,
		},
		Event: evt,
		AlertMeta: types.AlertMeta{
			Status:      types.AlertStatusNew,
			GeneratedAt: now.UTC(),
		},
	}
}
