package parser

import (
	"regexp"
	"strings"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// syslogPattern matches the traditional BSD syslog line shape:
// "Jan 15 10:30:01 host sshd[100]: Failed password for root ...".
var syslogPattern = regexp.MustCompile(
	`^(?P<ts>\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
		`(?P<host>\S+)\s+` +
		`(?P<proc>\S+?)(\[(?P<pid>\d+)\])?:\s+` +
		`(?P<msg>.*)$`,
)

// SyslogParser parses traditional BSD-style syslog lines.
type SyslogParser struct{}

// Parse implements Parser.
func (p *SyslogParser) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	m := syslogPattern.FindStringSubmatch(raw.Message)
	if m == nil {
		return nil, false
	}
	idx := namedGroups(syslogPattern, m)

	body := idx["msg"]
	return types.ParsedEvent{
		"timestamp": idx["ts"],
		"host": map[string]any{
			"hostname": idx["host"],
		},
		"process": map[string]any{
			"name": idx["proc"],
			"pid":  idx["pid"],
		},
		"message": body,
		"log": map[string]any{
			"level": syslogLevel(body),
		},
	}, true
}

// syslogLevel infers a log level from a keyword scan of the message
// body, matching the original parser's precedence order.
func syslogLevel(body string) string {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
		return "error"
	case strings.Contains(lower, "warning") || strings.Contains(lower, "warn"):
		return "warning"
	case strings.Contains(lower, "info"):
		return "info"
	default:
		return "notice"
	}
}

// namedGroups maps a regexp's named capture groups to their matched
// values for a single FindStringSubmatch result.
func namedGroups(re *regexp.Regexp, m []string) map[string]string {
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = m[i]
	}
	return out
}
