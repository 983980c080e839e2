// Command detection-engine pops raw events off the shared queue,
// parses and enriches them into ECS-shaped records, evaluates them
// against the hot-reloaded rule set, and ships both the events and
// any resulting alerts onward.
//
// # Configuration
//
// The detection engine is configured entirely through environment
// variables; see internal/config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pilot-net/siem-pipeline/internal/config"
	"github.com/pilot-net/siem-pipeline/internal/enrich"
	"github.com/pilot-net/siem-pipeline/internal/evaluator"
	"github.com/pilot-net/siem-pipeline/internal/health"
	"github.com/pilot-net/siem-pipeline/internal/indexer"
	"github.com/pilot-net/siem-pipeline/internal/parser"
	"github.com/pilot-net/siem-pipeline/internal/queue"
	"github.com/pilot-net/siem-pipeline/internal/rules"
	"github.com/pilot-net/siem-pipeline/internal/schema"
	"github.com/pilot-net/siem-pipeline/internal/tracker"
	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("detection-engine v0.1.0")
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.DetectionConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := queue.New(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	store, err := rules.NewStore(cfg.RulesDir, cfg.RulesExtension, cfg.RuleReloadInterval, logger)
	if err != nil {
		logger.Error("failed to load rules", "error", err)
		os.Exit(1)
	}

	threshold := tracker.NewThresholdTracker(logger)
	correlation := tracker.NewCorrelationEngine(logger)
	eval := evaluator.New(store, threshold, correlation, logger)

	chain := enrich.NewChain(
		enrich.NewGeoIPEnricher(cfg.GeoIPDBPath, logger),
		enrich.NewReverseDNSEnricher(cfg.DNSCacheSize, cfg.DNSCacheTTL, logger),
		enrich.NewThreatIntelEnricher(cfg.ThreatIntelPath, logger),
	)

	registry := parser.NewRegistry()

	idx := indexer.New(indexer.Config{
		Host:        cfg.OpenSearchHost,
		Port:        cfg.OpenSearchPort,
		User:        cfg.OpenSearchUser,
		Password:    cfg.OpenSearchPassword,
		UseSSL:      cfg.OpenSearchUseSSL,
		IndexPrefix: cfg.IndexPrefix,
		BatchSize:   cfg.BatchSize,
	}, logger)

	metrics := &health.Metrics{}
	reporter := health.NewReporter(func(ctx context.Context) (int64, error) {
		return q.Depth(ctx, queue.ListEvents)
	}, metrics, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.RunJanitor(ctx, threshold, correlation)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx, cfg.HealthReportInterval)
	}()

	w := &worker{
		queue:     q,
		registry:  registry,
		chain:     chain,
		evaluator: eval,
		indexer:   idx,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.run(ctx, id)
		}(i)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(5 * time.Second):
		logger.Warn("shutdown timed out, exiting anyway")
	}
}

// worker pops raw events, runs them through the full parse/enrich/
// evaluate pipeline, and forwards events and alerts downstream.
type worker struct {
	queue     *queue.Client
	registry  *parser.Registry
	chain     *enrich.Chain
	evaluator *evaluator.Evaluator
	indexer   *indexer.Indexer
	cfg       config.DetectionConfig
	metrics   *health.Metrics
	logger    *slog.Logger
}

func (w *worker) run(ctx context.Context, id int) {
	logger := w.logger.With("worker", id)
	var batch []types.Event

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.indexer.IndexBatch(ctx, batch)
		batch = batch[:0]
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		default:
		}

		payload, ok, err := w.queue.PopRight(ctx, queue.ListEvents)
		if err != nil {
			logger.Error("queue pop failed", "error", err)
			time.Sleep(w.cfg.PollInterval)
			continue
		}
		if !ok {
			flush()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		evt, alerts, ok := w.process(ctx, payload, logger)
		if !ok {
			continue
		}
		batch = append(batch, evt)
		if len(batch) >= w.cfg.BatchSize {
			flush()
		}

		for _, alert := range alerts {
			w.forwardAlert(ctx, alert, logger)
		}
	}
}

func (w *worker) process(ctx context.Context, payload []byte, logger *slog.Logger) (types.Event, []types.Alert, bool) {
	var raw types.RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		w.metrics.IncParseErrors()
		logger.Warn("discarding unparseable raw event", "error", err)
		return types.Event{}, nil, false
	}

	parsed, ok := w.registry.Parse(raw)
	if !ok {
		w.metrics.IncParseErrors()
		logger.Debug("no parser matched raw event", "source_type", raw.SourceType)
		parsed = types.ParsedEvent{"message": raw.Message}
	}

	evt := schema.Map(parsed)
	w.chain.Apply(ctx, &evt)
	w.metrics.IncEventsProcessed()
	w.metrics.IncEventsEnriched()

	alerts := w.evaluator.Evaluate(evt, time.Now())
	if len(alerts) > 0 {
		w.metrics.IncRulesMatched(int64(len(alerts)))
		w.metrics.IncAlertsGenerated(int64(len(alerts)))
	}

	return evt, alerts, true
}

func (w *worker) forwardAlert(ctx context.Context, alert types.Alert, logger *slog.Logger) {
	payload, err := json.Marshal(alert)
	if err != nil {
		logger.Error("failed to marshal alert", "error", err)
		return
	}
	if err := w.queue.Push(ctx, queue.ListAlerts, payload); err != nil {
		logger.Error("failed to push alert to queue", "error", err)
	}
}
