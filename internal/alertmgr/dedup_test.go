package alertmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func alertWithIPs(ruleID, sourceIP, destIP string) types.Alert {
	a := types.Alert{Rule: types.RuleRef{ID: ruleID}}
	if sourceIP != "" {
		a.Event.Source = &types.Endpoint{IP: sourceIP}
	}
	if destIP != "" {
		a.Event.Destination = &types.Endpoint{IP: destIP}
	}
	return a
}

func TestDeduplicatorSuppressesRepeatWithinWindow(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	now := time.Now()
	a := alertWithIPs("auth-001", "10.0.0.5", "10.0.0.1")

	assert.False(t, d.IsDuplicate(a, now))
	assert.True(t, d.IsDuplicate(a, now.Add(30*time.Second)))
}

func TestDeduplicatorAllowsRepeatAfterWindow(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	now := time.Now()
	a := alertWithIPs("auth-001", "10.0.0.5", "10.0.0.1")

	assert.False(t, d.IsDuplicate(a, now))
	assert.False(t, d.IsDuplicate(a, now.Add(2*time.Minute)))
}

func TestDeduplicatorTreatsMissingIPsAsDistinctFromPresent(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	now := time.Now()

	withIP := alertWithIPs("net-001", "10.0.0.5", "")
	withoutIP := alertWithIPs("net-001", "", "")

	assert.False(t, d.IsDuplicate(withIP, now))
	assert.False(t, d.IsDuplicate(withoutIP, now))
}

func TestDeduplicatorSweepEvictsOldEntries(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	now := time.Now()
	a := alertWithIPs("auth-001", "10.0.0.5", "10.0.0.1")

	d.IsDuplicate(a, now)
	d.Sweep(now.Add(3 * time.Minute))

	assert.False(t, d.IsDuplicate(a, now.Add(3*time.Minute)))
}
