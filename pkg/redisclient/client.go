// Package redisclient wraps go-redis with the defaults and helpers the
// desk services need when talking to the embedded state server or an
// external redis deployment.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper around redis.Client.
type Client struct {
	*redis.Client
}

// NewClient creates a client from explicit options.
func NewClient(options *redis.Options) *Client {
	return &Client{Client: redis.NewClient(options)}
}

// NewClientWithAddr creates a client for the given address with bounded
// dial/read/write timeouts.
func NewClientWithAddr(addr string, db int) *Client {
	return NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
}

// WaitReady polls the backend until it answers a PING or the deadline
// passes. Used after starting the embedded state server, which listens
// asynchronously.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := c.Ping(ctx).Err(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("state backend not ready after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// ScanKeys collects every key matching pattern using SCAN, which behaves
// consistently across server implementations where KEYS pattern matching
// does not.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var all []string
	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		all = append(all, keys...)
		if next == 0 {
			return all, nil
		}
		cursor = next
	}
}
