package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func TestMapSetsECSVersionAndTimestamp(t *testing.T) {
	parsed := types.ParsedEvent{
		"@timestamp": "2026-07-31T10:30:01Z",
		"message":    "hello",
	}

	evt := Map(parsed)
	assert.Equal(t, types.ECSVersion, evt.ECS.Version)
	assert.Equal(t, "hello", evt.Message)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestMapDefaultsTimestampToNowWhenAbsent(t *testing.T) {
	evt := Map(types.ParsedEvent{"message": "no timestamp here"})
	assert.WithinDuration(t, time.Now().UTC(), evt.Timestamp, 5*time.Second)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestMapProjectsNamespacesAndDropsUnknownKeys(t *testing.T) {
	parsed := types.ParsedEvent{
		"@timestamp": "2026-07-31T10:30:01Z",
		"source":     map[string]any{"ip": "10.0.0.5", "port": 4422},
		"event":      map[string]any{"category": "authentication", "type": "start"},
		"not_a_real_ecs_field": "should be dropped",
	}

	evt := Map(parsed)
	assert.Equal(t, "10.0.0.5", evt.Source.IP)
	assert.Equal(t, 4422, evt.Source.Port)
	assert.Equal(t, "authentication", evt.Event.Category)
}

func TestMapIsIdempotent(t *testing.T) {
	parsed := types.ParsedEvent{
		"@timestamp": "2026-07-31T10:30:01Z",
		"host":       map[string]any{"hostname": "bastion"},
	}
	first := Map(parsed)

	reflattened := types.ParsedEvent{
		"@timestamp": first.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		"host":       map[string]any{"hostname": first.Host.Hostname},
	}
	second := Map(reflattened)

	assert.Equal(t, first.Host.Hostname, second.Host.Hostname)
	assert.Equal(t, first.ECS.Version, second.ECS.Version)
}
