package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunWithBackoffRecoversAfterTransientError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		RunWithBackoff(ctx, logger, func(ctx context.Context) error {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				return errors.New("transient")
			}
			if n >= 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-ctx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("RunWithBackoff did not recover from a transient error in time")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
