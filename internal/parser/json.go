package parser

import (
	"encoding/json"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// JSONParser is the fallback parser: events that already carry a
// structured payload (either a JSON object in Message, or fields
// already lifted into Passthrough by the shipper) pass through with
// minimal reshaping.
type JSONParser struct{}

// Parse implements Parser. It never rejects a raw event: a message
// that fails to parse as JSON is kept verbatim under "message".
func (p *JSONParser) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	if _, ok := raw.Passthrough["@timestamp"]; ok {
		parsed := types.ParsedEvent{}
		for k, v := range raw.Passthrough {
			parsed[k] = v
		}
		if _, ok := parsed["message"]; !ok {
			parsed["message"] = raw.Message
		}
		return parsed, true
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(raw.Message), &body); err == nil {
		parsed := types.ParsedEvent(body)
		if _, ok := parsed["message"]; !ok {
			parsed["message"] = raw.Message
		}
		return parsed, true
	}

	return types.ParsedEvent{
		"message": raw.Message,
	}, true
}
