// Package parser routes a raw event to the parser selected by its
// source_type tag and normalizes it into namespaced fields the schema
// mapper understands. Every parser is total: on a pattern mismatch it
// returns (nil, false) rather than erroring, so one bad line never
// takes down a worker.
package parser

import (
	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Parser converts a RawEvent into namespaced fields, or reports it
// could not.
type Parser interface {
	Parse(raw types.RawEvent) (types.ParsedEvent, bool)
}

// Registry dispatches a RawEvent to the Parser registered for its
// source_type, defaulting to json when the tag is absent or unknown.
type Registry struct {
	parsers  map[string]Parser
	fallback Parser
}

// NewRegistry builds the registry with the standard parser set.
func NewRegistry() *Registry {
	jsonParser := &JSONParser{}
	webAccess := &WebAccessParser{}
	return &Registry{
		parsers: map[string]Parser{
			"syslog":     &SyslogParser{},
			"windows":    &WindowsParser{},
			"apache":     webAccess,
			"web_access": webAccess,
			"firewall":   &FirewallParser{},
			"json":       jsonParser,
		},
		fallback: jsonParser,
	}
}

// Parse dispatches raw on its SourceType, attaching @metadata on
// success.
func (r *Registry) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	sourceType := raw.SourceType
	if sourceType == "" {
		sourceType = "json"
	}

	p, ok := r.parsers[sourceType]
	if !ok {
		p = r.fallback
	}

	parsed, ok := p.Parse(raw)
	if !ok {
		return nil, false
	}

	parsed["@metadata"] = map[string]any{
		"parser":      parserName(p),
		"source_type": sourceType,
	}
	return parsed, true
}

func parserName(p Parser) string {
	switch p.(type) {
	case *SyslogParser:
		return "syslog"
	case *WindowsParser:
		return "windows"
	case *WebAccessParser:
		return "web_access"
	case *FirewallParser:
		return "firewall"
	case *JSONParser:
		return "json"
	default:
		return "unknown"
	}
}
