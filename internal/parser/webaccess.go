package parser

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// webAccessPattern matches the Apache/Nginx Combined Log Format:
// client - userid [datetime] "method path protocol" status size "referrer" "user-agent"
var webAccessPattern = regexp.MustCompile(
	`^(?P<client>\S+)\s+\S+\s+(?P<userid>\S+)\s+` +
		`\[(?P<datetime>[^\]]+)\]\s+` +
		`"(?P<method>\S+)\s+(?P<path>.+?)\s+(?P<protocol>\S+)"\s+` +
		`(?P<status>\d{3})\s+` +
		`(?P<size>\S+)\s+` +
		`"(?P<referrer>[^"]*)"\s+` +
		`"(?P<useragent>[^"]*)"`,
)

// WebAccessParser parses Apache/Nginx access logs in Combined Log Format.
type WebAccessParser struct{}

// Parse implements Parser.
func (p *WebAccessParser) Parse(raw types.RawEvent) (types.ParsedEvent, bool) {
	m := webAccessPattern.FindStringSubmatch(raw.Message)
	if m == nil {
		return nil, false
	}
	g := namedGroups(webAccessPattern, m)

	status, _ := strconv.Atoi(g["status"])
	size := 0
	if g["size"] != "-" {
		size, _ = strconv.Atoi(g["size"])
	}

	path := g["path"]
	parsedURL, _ := url.Parse(path)
	query := ""
	urlPath := path
	if parsedURL != nil {
		query = parsedURL.RawQuery
		urlPath = parsedURL.Path
	}

	return types.ParsedEvent{
		"source": map[string]any{
			"ip": g["client"],
		},
		"http": map[string]any{
			"request": map[string]any{
				"method":   g["method"],
				"referrer": g["referrer"],
			},
			"response": map[string]any{
				"status_code": status,
				"body": map[string]any{
					"bytes": size,
				},
			},
			"version": g["protocol"],
		},
		"url": map[string]any{
			"path":  urlPath,
			"query": query,
			"full":  path,
		},
		"user_agent": map[string]any{
			"original": g["useragent"],
		},
		"event": map[string]any{
			"category": "web",
			"type":     "access",
		},
	}, true
}
