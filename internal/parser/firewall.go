package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

var (
	firewallSrc   = regexp.MustCompile(`SRC=(\S+)`)
	firewallDst   = regexp.MustCompile(`DST=(\S+)`)
	firewallSPort = regexp.MustCompile(`SPT=(\d+)`)
	firewallDPort = regexp.MustCompile(`DPT=(\d+)`)
	firewallProto = regexp.MustCompile(`PROTO=(\S+)`)
)

// FirewallParser parses iptables-style key=value firewall logs.
type FirewallParser struct{}

// Parse implements Parser.
func (p *FirewallParser) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	msg := raw.Message

	eventType := "allowed"
	if strings.Contains(msg, "DENY") || strings.Contains(msg, "DROP") {
		eventType = "denied"
	}

	parsed := types.ParsedEvent{
		"event": map[string]any{
			"category": "network",
			"type":     eventType,
		},
		"message": msg,
	}

	if srcIP := firstSubmatch(firewallSrc, msg); srcIP != "" {
		src := map[string]any{"ip": srcIP}
		if p := firstSubmatch(firewallSPort, msg); p != "" {
			if port, err := strconv.Atoi(p); err == nil {
				src["port"] = port
			}
		}
		parsed["source"] = src
	}
	if dstIP := firstSubmatch(firewallDst, msg); dstIP != "" {
		dst := map[string]any{"ip": dstIP}
		if p := firstSubmatch(firewallDPort, msg); p != "" {
			if port, err := strconv.Atoi(p); err == nil {
				dst["port"] = port
			}
		}
		parsed["destination"] = dst
	}
	if proto := firstSubmatch(firewallProto, msg); proto != "" {
		parsed["network"] = map[string]any{
			"protocol": strings.ToLower(proto),
		}
	}

	return parsed, true
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
