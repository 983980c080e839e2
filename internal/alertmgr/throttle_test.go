package alertmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottlerAllowsUpToMaxWithinWindow(t *testing.T) {
	th := NewThrottler(time.Minute, 3)
	now := time.Now()

	assert.False(t, th.ShouldThrottle("auth-001", now))
	assert.False(t, th.ShouldThrottle("auth-001", now.Add(time.Second)))
	assert.False(t, th.ShouldThrottle("auth-001", now.Add(2*time.Second)))
	assert.True(t, th.ShouldThrottle("auth-001", now.Add(3*time.Second)))
}

func TestThrottlerTracksRulesIndependently(t *testing.T) {
	th := NewThrottler(time.Minute, 1)
	now := time.Now()

	assert.False(t, th.ShouldThrottle("auth-001", now))
	assert.False(t, th.ShouldThrottle("net-001", now))
}

func TestThrottlerPrunesEntriesOutsideWindow(t *testing.T) {
	th := NewThrottler(time.Minute, 1)
	now := time.Now()

	assert.False(t, th.ShouldThrottle("auth-001", now))
	assert.False(t, th.ShouldThrottle("auth-001", now.Add(2*time.Minute)))
}

func TestThrottlerExactCountOverManyDeliveries(t *testing.T) {
	th := NewThrottler(600*time.Second, 100)
	now := time.Now()

	allowed := 0
	for i := 0; i < 150; i++ {
		if !th.ShouldThrottle("auth-001", now.Add(time.Duration(i)*time.Second)) {
			allowed++
		}
	}

	assert.Equal(t, 100, allowed)
}
