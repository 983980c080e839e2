// Package queue provides a thin Redis-backed FIFO adapter over the two
// lists the pipeline shares with its producers and consumers:
// events:raw (collectors -> detection engine) and alerts:queue
// (detection engine -> alert manager).
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ListEvents is the collector-fed raw event list.
	ListEvents = "events:raw"
	// ListAlerts is the detection-engine-fed alert list.
	ListAlerts = "alerts:queue"

	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// Client is a Redis-backed FIFO queue client. Producers LPush, workers
// RPop, giving FIFO delivery order.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a Client from a redis:// URL and pings it once.
func New(ctx context.Context, redisURL string, logger *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Push appends a raw payload to the left of list, so RPop consumers see
// FIFO order.
func (c *Client) Push(ctx context.Context, list string, payload []byte) error {
	return c.rdb.LPush(ctx, list, payload).Err()
}

// PopRight pops one item from the right of list. It returns (nil,
// false, nil) when the list is empty, never blocking.
func (c *Client) PopRight(ctx context.Context, list string) ([]byte, bool, error) {
	val, err := c.rdb.RPop(ctx, list).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// PopRightBlocking pops one item, blocking up to timeout for one to
// arrive. It returns (nil, false, nil) on timeout.
func (c *Client) PopRightBlocking(ctx context.Context, list string, timeout time.Duration) ([]byte, bool, error) {
	res, err := c.rdb.BRPop(ctx, timeout, list).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// BRPop returns [list, value].
	if len(res) != 2 {
		return nil, false, fmt.Errorf("unexpected BRPOP reply shape: %v", res)
	}
	return []byte(res[1]), true, nil
}

// Depth reports the current length of list, used by the health
// reporter to surface queue back-pressure.
func (c *Client) Depth(ctx context.Context, list string) (int64, error) {
	return c.rdb.LLen(ctx, list).Result()
}

// RunWithBackoff calls fn repeatedly; a returned error is treated as a
// transient connection failure and triggers a sleep that starts at 1s,
// doubles up to a 30s cap, and resets to 1s on the next success.
// fn should return nil on success (including "nothing to do").
// The loop exits when ctx is cancelled.
func RunWithBackoff(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context) error) {
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := fn(ctx)
		if err == nil {
			backoff = minBackoff
			continue
		}
		if ctx.Err() != nil {
			return
		}

		logger.Error("queue operation failed, backing off", "error", err, "backoff", backoff)
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
