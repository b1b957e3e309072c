// internal/cache/summary.go

// Package cache keeps per-month settlement summaries in Redis. Every error is
// returned to the caller, which is expected to fall back to storage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio-settlement/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keySummary = "settlement:summary:%s"

type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New parses a redis:// URL. It does not dial; the first command will.
func New(url string, ttl time.Duration) (*SummaryCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return &SummaryCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func Key(month string) string {
	return fmt.Sprintf(keySummary, month)
}

// Get reports a miss as (nil, false, nil).
func (c *SummaryCache) Get(ctx context.Context, month string) ([]domain.MemberSummary, bool, error) {
	data, err := c.client.Get(ctx, Key(month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var summaries []domain.MemberSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return summaries, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, month string, summaries []domain.MemberSummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, Key(month), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *SummaryCache) Invalidate(ctx context.Context, month string) error {
	if err := c.client.Del(ctx, Key(month)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *SummaryCache) Close() error {
	return c.client.Close()
}
