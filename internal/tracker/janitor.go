package tracker

import (
	"context"
	"time"
)

// RunJanitor sweeps both trackers every janitorInterval until ctx is
// canceled.
func RunJanitor(ctx context.Context, threshold *ThresholdTracker, correlation *CorrelationEngine) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold.Sweep()
			correlation.Sweep()
		}
	}
}
