package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// threatFeed is the on-disk shape of the indicator feed file.
type threatFeed struct {
	IPs     []string `json:"ips"`
	Domains []string `json:"domains"`
	Hashes  []string `json:"hashes"`
}

// ThreatIntelEnricher matches event fields against indicator lists
// loaded once at startup from a JSON feed.
type ThreatIntelEnricher struct {
	ips     map[string]bool
	domains map[string]bool
	hashes  map[string]bool
	logger  *slog.Logger
}

// NewThreatIntelEnricher loads the feed at feedPath. A missing file
// logs a warning and leaves the enricher with empty indicator sets,
// making it a no-op rather than a startup error.
func NewThreatIntelEnricher(feedPath string, logger *slog.Logger) *ThreatIntelEnricher {
	log := logger.With("component", "threat-intel")
	e := &ThreatIntelEnricher{
		ips:     map[string]bool{},
		domains: map[string]bool{},
		hashes:  map[string]bool{},
		logger:  log,
	}

	if feedPath == "" {
		return e
	}

	data, err := os.ReadFile(feedPath)
	if err != nil {
		log.Warn("threat intel feed not found", "path", feedPath, "error", err)
		return e
	}

	var feed threatFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		log.Error("failed to parse threat intel feed", "path", feedPath, "error", err)
		return e
	}

	for _, ip := range feed.IPs {
		e.ips[ip] = true
	}
	for _, d := range feed.Domains {
		e.domains[d] = true
	}
	for _, h := range feed.Hashes {
		e.hashes[h] = true
	}

	log.Info("threat intel loaded", "ips", len(e.ips), "domains", len(e.domains), "hashes", len(e.hashes))
	return e
}

// Enrich implements Enricher.
func (e *ThreatIntelEnricher) Enrich(_ context.Context, evt *types.Event) {
	var indicators []types.ThreatIndicator

	if evt.Source != nil && e.ips[evt.Source.IP] {
		indicators = append(indicators, types.ThreatIndicator{Type: "ip", Value: evt.Source.IP, Field: "source.ip"})
	}
	if evt.Destination != nil && e.ips[evt.Destination.IP] {
		indicators = append(indicators, types.ThreatIndicator{Type: "ip", Value: evt.Destination.IP, Field: "destination.ip"})
	}
	if evt.DNS != nil && e.domains[evt.DNS.Question.Name] {
		indicators = append(indicators, types.ThreatIndicator{Type: "domain", Value: evt.DNS.Question.Name, Field: "dns.question.name"})
	}

	if len(indicators) == 0 {
		return
	}

	if evt.Threat == nil {
		evt.Threat = &types.ThreatInfo{}
	}
	evt.Threat.Indicators = append(evt.Threat.Indicators, indicators...)
	evt.Threat.Matched = true
}
