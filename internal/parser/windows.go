package parser

import (
	"github.com/pilot-net/siem-pipeline/pkg/types"
)

var (
	authEventIDs = map[int]bool{4624: true, 4625: true, 4648: true, 4672: true, 4776: true}
	iamEventIDs  = map[int]bool{4720: true, 4722: true, 4724: true, 4732: true, 4740: true, 4756: true}
)

// WindowsParser parses Windows Event Log entries carried in a
// RawEvent's passthrough `winlog` object.
type WindowsParser struct{}

// Parse implements Parser.
func (p *WindowsParser) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	winlog, _ := raw.Passthrough["winlog"].(map[string]any)

	eventID := asInt(winlog["event_id"])

	eventData, _ := winlog["event_data"].(map[string]any)
	host, _ := raw.Passthrough["host"].(map[string]any)

	parsed := types.ParsedEvent{
		"event": map[string]any{
			"code":     eventID,
			"provider": winlog["provider_name"],
			"category": windowsEventCategory(eventID),
		},
		"host": map[string]any{
			"hostname": host["name"],
			"os": map[string]any{
				"platform": "windows",
			},
		},
		"user": map[string]any{
			"name":   eventData["TargetUserName"],
			"domain": eventData["TargetDomainName"],
		},
		"message": raw.Message,
	}
	if ts, ok := raw.Passthrough["@timestamp"]; ok {
		parsed["@timestamp"] = ts
	}
	return parsed, true
}

func windowsEventCategory(eventID int) string {
	switch {
	case authEventIDs[eventID]:
		return "authentication"
	case iamEventIDs[eventID]:
		return "iam"
	default:
		return "system"
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
