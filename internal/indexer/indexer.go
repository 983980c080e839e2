// Package indexer batches enriched events and writes them to an
// OpenSearch-compatible bulk endpoint. Indexing is best-effort: a
// batch that exhausts its retry budget is dropped rather than
// blocking the detection pipeline.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
	maxTries   = 5
)

// Config configures the bulk indexer's endpoint and batching.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	UseSSL      bool
	IndexPrefix string
	BatchSize   int
}

// Indexer writes caller-assembled batches of events as OpenSearch
// _bulk requests, one call per batch. It keeps no buffer of its own.
type Indexer struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds an Indexer from cfg.
func New(cfg Config, logger *slog.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Indexer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "indexer"),
	}
}

// IndexBatch writes a batch of events to today's daily index, retrying
// transient failures with exponential backoff before dropping the
// batch. @metadata is stripped before indexing, per the wire contract.
func (idx *Indexer) IndexBatch(ctx context.Context, events []types.Event) {
	if len(events) == 0 {
		return
	}

	index := dailyIndexName(idx.cfg.IndexPrefix, time.Now().UTC())
	body := idx.buildBulkBody(index, events)

	backoff := minBackoff
	for attempt := 1; attempt <= maxTries; attempt++ {
		err := idx.send(ctx, body)
		if err == nil {
			return
		}

		idx.logger.Warn("bulk index attempt failed", "attempt", attempt, "events", len(events), "error", err)
		if attempt == maxTries {
			idx.logger.Error("dropping batch after exhausting retries", "events", len(events))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// buildBulkBody renders the newline-delimited JSON the OpenSearch/
// Elasticsearch _bulk endpoint expects: an action line followed by a
// source line per document.
func (idx *Indexer) buildBulkBody(index string, events []types.Event) []byte {
	var buf bytes.Buffer
	for _, evt := range events {
		action := map[string]any{"index": map[string]any{"_index": index}}
		actionLine, _ := json.Marshal(action)
		buf.Write(actionLine)
		buf.WriteByte('\n')

		evt.Metadata = nil
		sourceLine, _ := json.Marshal(evt)
		buf.Write(sourceLine)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (idx *Indexer) send(ctx context.Context, body []byte) error {
	scheme := "http"
	if idx.cfg.UseSSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d/_bulk", scheme, idx.cfg.Host, idx.cfg.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if idx.cfg.User != "" {
		req.SetBasicAuth(idx.cfg.User, idx.cfg.Password)
	}

	resp, err := idx.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("bulk request returned status %d", resp.StatusCode)
	}
	return nil
}

// dailyIndexName formats the UTC daily index name: <prefix>-YYYY.MM.DD.
func dailyIndexName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%04d.%02d.%02d", prefix, t.Year(), t.Month(), t.Day())
}
