// Command alert-manager pops alerts off the shared queue, deduplicates
// and throttles them, and dispatches them to the notification
// channels their severity routes to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pilot-net/siem-pipeline/internal/alertmgr"
	"github.com/pilot-net/siem-pipeline/internal/config"
	"github.com/pilot-net/siem-pipeline/internal/health"
	"github.com/pilot-net/siem-pipeline/internal/notify"
	"github.com/pilot-net/siem-pipeline/internal/queue"
	"github.com/pilot-net/siem-pipeline/internal/secrets"
	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("alert-manager v0.1.0")
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.AlertManagerConfigFromEnv()
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

	resolver, err := secrets.New(secrets.ConfigFromEnv(), logger)
	if err != nil {
		logger.Error("failed to initialize secrets resolver", "error", err)
		os.Exit(1)
	}

	notifiers := map[string]alertmgr.Notifier{
		"slack":     notify.NewSlackNotifier(cfg.SlackSecretName, resolver, 60, logger),
		"pagerduty": notify.NewPagerDutyNotifier(cfg.PagerDutySecretName, resolver, types.Severity(cfg.PagerDutyThreshold), 60, logger),
		"webhook":   notify.NewWebhookNotifier(cfg.WebhookSecretName, resolver, 60, logger),
		"email": notify.NewEmailNotifier(notify.SMTPConfig{
			Host:               cfg.SMTPHost,
			Port:               cfg.SMTPPort,
			From:               cfg.SMTPFrom,
			To:                 cfg.SMTPTo,
			Username:           cfg.SMTPUsername,
			PasswordSecretName: cfg.SMTPPasswordSecretName,
		}, resolver, 30, logger),
	}

	metrics := &health.Metrics{}

	manager := alertmgr.New(q, notifiers, alertmgr.Config{
		DedupWindow:    cfg.DedupWindow,
		ThrottleWindow: cfg.ThrottleWindow,
		ThrottleMax:    cfg.ThrottleMax,
	}, metrics, logger)

	reporter := health.NewReporter(func(ctx context.Context) (int64, error) {
		return q.Depth(ctx, queue.ListAlerts)
	}, metrics, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx, cfg.HealthReportInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.RunSweeper(ctx, 2*cfg.DedupWindow)
	}()

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.RunWorker(ctx, 500*time.Millisecond)
		}()
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
