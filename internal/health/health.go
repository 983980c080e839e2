// Package health reports process health snapshots (CPU, memory,
// goroutine count, queue depth) the way the control plane's metrics
// collector does, scoped down to what a pipeline worker needs to log
// and expose.
package health

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// QueueDepthFunc reports the current depth of the queue this process
// reads from or writes to, for inclusion in the health snapshot.
type QueueDepthFunc func(ctx context.Context) (int64, error)

// Reporter periodically collects a HealthSnapshot and logs it.
type Reporter struct {
	startTime  time.Time
	queueDepth QueueDepthFunc
	logger     *slog.Logger
	metrics    *Metrics

	mu       sync.Mutex
	lastProc *process.Process
}

// NewReporter builds a Reporter. queueDepth may be nil if the process
// has no single queue to report depth for.
func NewReporter(queueDepth QueueDepthFunc, metrics *Metrics, logger *slog.Logger) *Reporter {
	return &Reporter{
		startTime:  time.Now(),
		queueDepth: queueDepth,
		metrics:    metrics,
		logger:     logger.With("component", "health"),
	}
}

// Snapshot collects a single HealthSnapshot.
func (r *Reporter) Snapshot(ctx context.Context) types.HealthSnapshot {
	snap := types.HealthSnapshot{
		Timestamp:     time.Now(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(r.startTime).Seconds()),
	}

	if proc, err := r.process(); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			snap.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
	}

	if r.queueDepth != nil {
		if depth, err := r.queueDepth(ctx); err == nil {
			snap.QueueDepth = depth
		}
	}

	return snap
}

func (r *Reporter) process() (*process.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastProc != nil {
		return r.lastProc, nil
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	r.lastProc = proc
	return proc, nil
}

// Run logs a health snapshot on every tick until ctx is canceled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := r.Snapshot(ctx)
			r.logger.Info("health snapshot",
				"goroutines", snap.Goroutines,
				"cpu_percent", snap.CPUPercent,
				"memory_mb", snap.MemoryMB,
				"uptime_seconds", snap.UptimeSeconds,
				"queue_depth", snap.QueueDepth,
			)
			if r.metrics != nil {
				r.metrics.Log(r.logger)
			}
		}
	}
}

// Metrics are process-lifetime counters, safe for concurrent
// increment from worker goroutines.
type Metrics struct {
	EventsProcessed int64
	EventsEnriched  int64
	ParseErrors     int64
	RulesMatched    int64
	AlertsGenerated int64

	AlertsDeduped   int64
	AlertsThrottled int64
	AlertsDelivered int64
}

func (m *Metrics) IncEventsProcessed() { atomic.AddInt64(&m.EventsProcessed, 1) }
func (m *Metrics) IncEventsEnriched()  { atomic.AddInt64(&m.EventsEnriched, 1) }
func (m *Metrics) IncParseErrors()     { atomic.AddInt64(&m.ParseErrors, 1) }
func (m *Metrics) IncRulesMatched(n int64) { atomic.AddInt64(&m.RulesMatched, n) }
func (m *Metrics) IncAlertsGenerated(n int64) { atomic.AddInt64(&m.AlertsGenerated, n) }
func (m *Metrics) IncAlertsDeduped()   { atomic.AddInt64(&m.AlertsDeduped, 1) }
func (m *Metrics) IncAlertsThrottled() { atomic.AddInt64(&m.AlertsThrottled, 1) }
func (m *Metrics) IncAlertsDelivered() { atomic.AddInt64(&m.AlertsDelivered, 1) }

// Snapshot returns the current counter values as the wire-shaped
// types.Metrics struct.
func (m *Metrics) Snapshot() types.Metrics {
	return types.Metrics{
		EventsProcessed: atomic.LoadInt64(&m.EventsProcessed),
		EventsEnriched:  atomic.LoadInt64(&m.EventsEnriched),
		ParseErrors:     atomic.LoadInt64(&m.ParseErrors),
		RulesMatched:    atomic.LoadInt64(&m.RulesMatched),
		AlertsGenerated: atomic.LoadInt64(&m.AlertsGenerated),
		AlertsDeduped:   atomic.LoadInt64(&m.AlertsDeduped),
		AlertsThrottled: atomic.LoadInt64(&m.AlertsThrottled),
		AlertsDelivered: atomic.LoadInt64(&m.AlertsDelivered),
	}
}

// Log emits the current counters as a single structured log line.
func (m *Metrics) Log(logger *slog.Logger) {
	s := m.Snapshot()
	logger.Info("pipeline metrics",
		"events_processed", s.EventsProcessed,
		"events_enriched", s.EventsEnriched,
		"parse_errors", s.ParseErrors,
		"rules_matched", s.RulesMatched,
		"alerts_generated", s.AlertsGenerated,
		"alerts_deduped", s.AlertsDeduped,
		"alerts_throttled", s.AlertsThrottled,
		"alerts_delivered", s.AlertsDelivered,
	)
}
