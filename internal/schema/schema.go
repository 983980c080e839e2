// Package schema projects a ParsedEvent's loosely-typed namespaces
// into the canonical ECS-shaped Event. Unknown top-level keys are
// dropped except message, tags, and @metadata.
package schema

import (
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Map converts a ParsedEvent into an Event. It is idempotent: mapping
// an already-mapped event's re-flattened form produces the same
// result.
func Map(parsed types.ParsedEvent) types.Event {
	evt := types.Event{
		ECS: types.ECSInfo{Version: types.ECSVersion},
	}

	evt.Timestamp = timestampOf(parsed)

	if msg, ok := parsed["message"].(string); ok {
		evt.Message = msg
	}

	if m, ok := asMap(parsed["event"]); ok {
		evt.Event = &types.EventMeta{
			Category: str(m["category"]),
			Type:     str(m["type"]),
			Outcome:  str(m["outcome"]),
			Code:     m["code"],
			Provider: str(m["provider"]),
		}
	}
	if m, ok := asMap(parsed["source"]); ok {
		evt.Source = endpointOf(m)
	}
	if m, ok := asMap(parsed["destination"]); ok {
		evt.Destination = endpointOf(m)
	}
	if m, ok := asMap(parsed["host"]); ok {
		host := &types.HostInfo{Hostname: str(m["hostname"])}
		if os, ok := asMap(m["os"]); ok {
			host.OS = &types.OSInfo{Platform: str(os["platform"])}
		}
		evt.Host = host
	}
	if m, ok := asMap(parsed["user"]); ok {
		evt.User = &types.UserInfo{Name: str(m["name"]), Domain: str(m["domain"])}
	}
	if m, ok := asMap(parsed["process"]); ok {
		evt.Process = &types.ProcessInfo{Name: str(m["name"]), PID: str(m["pid"])}
	}
	if m, ok := asMap(parsed["network"]); ok {
		evt.Network = &types.NetworkInfo{Protocol: str(m["protocol"]), Bytes: int64(num(m["bytes"]))}
	}
	if m, ok := asMap(parsed["http"]); ok {
		http := &types.HTTPInfo{Version: str(m["version"])}
		if req, ok := asMap(m["request"]); ok {
			http.Request = types.HTTPRequest{Method: str(req["method"]), Referrer: str(req["referrer"])}
		}
		if resp, ok := asMap(m["response"]); ok {
			http.Response = types.HTTPResponse{StatusCode: int(num(resp["status_code"]))}
			if body, ok := asMap(resp["body"]); ok {
				http.Response.Body = types.HTTPBodyInfo{Bytes: int(num(body["bytes"]))}
			}
		}
		evt.HTTP = http
	}
	if m, ok := asMap(parsed["url"]); ok {
		evt.URL = &types.URLInfo{Path: str(m["path"]), Query: str(m["query"]), Full: str(m["full"])}
	}
	if m, ok := asMap(parsed["user_agent"]); ok {
		evt.UserAgent = &types.UserAgentInfo{Original: str(m["original"])}
	}
	if m, ok := asMap(parsed["dns"]); ok {
		dns := &types.DNSInfo{}
		if q, ok := asMap(m["question"]); ok {
			dns.Question = types.DNSQuestion{Name: str(q["name"])}
		}
		evt.DNS = dns
	}
	if m, ok := asMap(parsed["file"]); ok {
		evt.File = types.FileInfo(m)
	}
	if tags, ok := parsed["tags"].([]string); ok {
		evt.Tags = tags
	} else if raw, ok := parsed["tags"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				evt.Tags = append(evt.Tags, s)
			}
		}
	}
	if m, ok := asMap(parsed["@metadata"]); ok {
		evt.Metadata = &types.Metadata{Parser: str(m["parser"]), SourceType: str(m["source_type"])}
	}

	return evt
}

func timestampOf(parsed types.ParsedEvent) time.Time {
	candidates := []any{parsed["@timestamp"], parsed["timestamp"]}
	for _, c := range candidates {
		s, ok := c.(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse("Jan _2 15:04:05", s); err == nil {
			now := time.Now().UTC()
			return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	}
	return time.Now().UTC()
}

func endpointOf(m map[string]any) *types.Endpoint {
	return &types.Endpoint{
		IP:     str(m["ip"]),
		Port:   int(num(m["port"])),
		Domain: str(m["domain"]),
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
