// Package alertmgr consumes alerts from the queue and fans them out
// to notification channels, after deduplication and per-rule
// throttling.
package alertmgr

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Deduplicator suppresses repeat alerts sharing a dedup key within a
// configurable window. The dedup key is md5(rule.id:source.ip:destination.ip).
type Deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
}

// NewDeduplicator builds a deduplicator with the given suppression window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:   window,
		lastSeen: make(map[string]time.Time),
	}
}

// IsDuplicate reports whether alert's dedup key was last seen within
// the window, recording now as the latest sighting either way.
func (d *Deduplicator) IsDuplicate(alert types.Alert, now time.Time) bool {
	key := dedupKey(alert)

	d.mu.Lock()
	defer d.mu.Unlock()

	last, seen := d.lastSeen[key]
	d.lastSeen[key] = now
	return seen && now.Sub(last) < d.window
}

// Sweep evicts dedup entries older than 2x the window.
func (d *Deduplicator) Sweep(now time.Time) {
	cutoff := now.Add(-2 * d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.lastSeen {
		if t.Before(cutoff) {
			delete(d.lastSeen, key)
		}
	}
}

func dedupKey(alert types.Alert) string {
	sourceIP, destIP := "None", "None"
	if alert.Event.Source != nil && alert.Event.Source.IP != "" {
		sourceIP = alert.Event.Source.IP
	}
	if alert.Event.Destination != nil && alert.Event.Destination.IP != "" {
		destIP = alert.Event.Destination.IP
	}

	raw := fmt.Sprintf("%s:%s:%s", alert.Rule.ID, sourceIP, destIP)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
