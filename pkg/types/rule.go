package types

import "time"

// Severity is the alert urgency level a rule declares.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Level returns a numeric ordering for severity comparisons (higher =
// more severe). Used by the PagerDuty severity-threshold gate.
func (s Severity) Level() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 0
	default:
		return -1
	}
}

// RuleType selects which sub-evaluator handles a rule's matches.
type RuleType string

const (
	RuleTypeSimple      RuleType = "simple"
	RuleTypeThreshold   RuleType = "threshold"
	RuleTypeCorrelation RuleType = "correlation"
)

// Matcher is a single selection criterion's right-hand side: a scalar,
// a list (membership test), or an operator map (gte/lte/gt/lt/contains/
// regex). It is decoded from YAML as `any` and interpreted by the
// evaluator at match time.
type Matcher = any

// Detection holds a rule's match and stateful-tracking configuration.
type Detection struct {
	Selection    map[string]Matcher `yaml:"selection" json:"selection"`
	Condition    string             `yaml:"condition,omitempty" json:"condition,omitempty"`
	Timeframe    string             `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
	GroupBy      []string           `yaml:"groupby,omitempty" json:"groupby,omitempty"`
	UniqueCount  []string           `yaml:"unique_count,omitempty" json:"unique_count,omitempty"`
}

// Correlation holds a correlation rule's minimum-events requirement.
type Correlation struct {
	MinEvents int `yaml:"min_events" json:"min_events"`
}

// Action describes what to do on a rule match, beyond emitting an
// alert of the rule's own severity — e.g. routing to extra channels.
type Action struct {
	Type         string   `yaml:"type" json:"type"`
	Notification []string `yaml:"notification,omitempty" json:"notification,omitempty"`
}

// Rule is a declarative detection rule loaded from a rule file.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Severity    Severity `yaml:"severity" json:"severity"`
	Category    string   `yaml:"category,omitempty" json:"category,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Type        RuleType `yaml:"type,omitempty" json:"type,omitempty"`

	Detection   Detection    `yaml:"detection" json:"detection"`
	Correlation *Correlation `yaml:"correlation,omitempty" json:"correlation,omitempty"`

	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Actions []Action `yaml:"actions,omitempty" json:"actions,omitempty"`

	// SourceFile is the path this rule was loaded from; kept for
	// diagnostics, not part of the wire format.
	SourceFile string `yaml:"-" json:"-"`

	// timeframe is the parsed Detection.Timeframe, cached by the rule
	// loader after validation so hot-path evaluation never reparses it.
	timeframe time.Duration
}

// IsEnabled reports whether the rule is active. Absent `enabled`
// defaults to true.
func (r *Rule) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// Timeframe returns the parsed sliding-window duration, valid only
// after the rule loader has parsed Detection.Timeframe.
func (r *Rule) Timeframe() time.Duration {
	return r.timeframe
}

// SetTimeframe is called by the rule loader once it has parsed
// Detection.Timeframe successfully.
func (r *Rule) SetTimeframe(d time.Duration) {
	r.timeframe = d
}

// EffectiveType returns the rule's type, defaulting to simple.
func (r *Rule) EffectiveType() RuleType {
	if r.Type == "" {
		return RuleTypeSimple
	}
	return r.Type
}

// RuleSnapshot is an immutable, generation-numbered set of validated
// rules, published atomically by the rule store and read once per
// event by evaluators.
type RuleSnapshot struct {
	Generation uint64
	Rules      []*Rule
	LoadedAt   time.Time
}
