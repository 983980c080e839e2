package indexer

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDailyIndexNameFormatsUTCDate(t *testing.T) {
	ts := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "siem-events-2026.07.31", dailyIndexName("siem-events", ts))
}

func TestIndexBatchSendsBulkRequest(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	port, _ := strconv.Atoi(portStr)

	idx := New(Config{Host: host, Port: port, IndexPrefix: "siem-events"}, testLogger())
	idx.IndexBatch(context.Background(), []types.Event{{Message: "hello"}})

	assert.Contains(t, string(gotBody), `"index"`)
	assert.Contains(t, string(gotBody), "hello")
}

func TestIndexBatchDropsAfterExhaustingRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	port, _ := strconv.Atoi(portStr)

	idx := New(Config{Host: host, Port: port, IndexPrefix: "siem-events"}, testLogger())
	idx.httpClient.Timeout = time.Second

	done := make(chan struct{})
	go func() {
		idx.IndexBatch(context.Background(), []types.Event{{Message: "x"}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		t.Fatal("IndexBatch did not return within retry budget")
	}
	assert.Equal(t, maxTries, calls)
}

func splitHostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	assert.NoError(t, err)
	return u.Hostname(), u.Port()
}
