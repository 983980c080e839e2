package enrich

import (
	"context"
	"log/slog"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// dnsCacheSize is the minimum bound the selection spec requires.
const dnsCacheSize = 5000

// perEventLookupBudget caps reverse lookups per event, regardless of
// how many endpoints an event carries.
const perEventLookupBudget = 2

// dnsCacheEntry is either a resolved hostname or a tombstone recording
// that a lookup failed, both subject to the same TTL.
type dnsCacheEntry struct {
	hostname string
	ok       bool
	expires  time.Time
}

// ReverseDNSEnricher adds source.domain / destination.domain via
// reverse lookups, bounded by a fixed-size LRU cache with negative
// caching so a flood of unresolvable IPs doesn't re-hit the resolver.
type ReverseDNSEnricher struct {
	cache  *lru.Cache[string, dnsCacheEntry]
	ttl    time.Duration
	logger *slog.Logger

	lookup func(ip string) (string, error)
}

// NewReverseDNSEnricher builds the enricher with the given cache size
// and entry TTL. size is floored at dnsCacheSize per the selection spec.
func NewReverseDNSEnricher(size int, ttl time.Duration, logger *slog.Logger) *ReverseDNSEnricher {
	if size < dnsCacheSize {
		size = dnsCacheSize
	}
	cache, err := lru.New[string, dnsCacheEntry](size)
	if err != nil {
		panic(err)
	}
	return &ReverseDNSEnricher{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "dns-enricher"),
		lookup: defaultReverseLookup,
	}
}

// Enrich implements Enricher.
func (d *ReverseDNSEnricher) Enrich(_ context.Context, evt *types.Event) {
	budget := perEventLookupBudget

	if evt.Source != nil && evt.Source.IP != "" && budget > 0 {
		if host, ok := d.resolve(evt.Source.IP); ok {
			evt.Source.Domain = host
		}
		budget--
	}
	if evt.Destination != nil && evt.Destination.IP != "" && budget > 0 {
		if host, ok := d.resolve(evt.Destination.IP); ok {
			evt.Destination.Domain = host
		}
		budget--
	}
}

func (d *ReverseDNSEnricher) resolve(ip string) (string, bool) {
	if entry, ok := d.cache.Get(ip); ok && time.Now().Before(entry.expires) {
		return entry.hostname, entry.ok
	}

	host, err := d.lookup(ip)
	entry := dnsCacheEntry{expires: time.Now().Add(d.ttl)}
	if err != nil {
		entry.ok = false
		d.cache.Add(ip, entry)
		return "", false
	}
	entry.ok = true
	entry.hostname = host
	d.cache.Add(ip, entry)
	return host, true
}

func defaultReverseLookup(ip string) (string, error) {
	names, err := net.LookupAddr(ip)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}
