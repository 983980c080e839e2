package rules

import (
	"fmt"
	"regexp"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

var timeframePattern = regexp.MustCompile(`^[0-9]+[smhd]$`)

// Validate checks the required fields and invariants a rule file must
// satisfy before it is admitted into a snapshot.
func Validate(r *types.Rule) error {
	if r.ID == "" {
		return fmt.Errorf("rule missing required field: id")
	}
	if r.Name == "" {
		return fmt.Errorf("rule %s missing required field: name", r.ID)
	}
	if r.Description == "" {
		return fmt.Errorf("rule %s missing required field: description", r.ID)
	}
	switch r.Severity {
	case types.SeverityLow, types.SeverityMedium, types.SeverityHigh, types.SeverityCritical:
	default:
		return fmt.Errorf("rule %s has invalid severity: %q", r.ID, r.Severity)
	}

	switch r.EffectiveType() {
	case types.RuleTypeSimple, types.RuleTypeThreshold, types.RuleTypeCorrelation:
	default:
		return fmt.Errorf("rule %s has unknown type: %q", r.ID, r.Type)
	}

	if r.Detection.Selection == nil {
		return fmt.Errorf("rule %s missing required field: detection.selection", r.ID)
	}

	needsTimeframe := r.EffectiveType() == types.RuleTypeThreshold || r.EffectiveType() == types.RuleTypeCorrelation
	if needsTimeframe {
		if r.Detection.Timeframe == "" {
			return fmt.Errorf("rule %s is type %s but has no detection.timeframe", r.ID, r.EffectiveType())
		}
		if !timeframePattern.MatchString(r.Detection.Timeframe) {
			return fmt.Errorf("rule %s has malformed detection.timeframe: %q", r.ID, r.Detection.Timeframe)
		}
	}

	if r.EffectiveType() == types.RuleTypeThreshold && r.Detection.Condition == "" {
		return fmt.Errorf("rule %s is type threshold but has no detection.condition", r.ID)
	}
	if r.EffectiveType() == types.RuleTypeCorrelation && (r.Correlation == nil || r.Correlation.MinEvents <= 0) {
		return fmt.Errorf("rule %s is type correlation but has no correlation.min_events", r.ID)
	}

	return nil
}
