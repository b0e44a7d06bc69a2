package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Retention for hourly counters; long enough for the analytics dashboard's
// 30-day window.
const counterRetention = 31 * 24 * time.Hour

// StatusRecorder is the analytics capability consumed by the delivery
// service. A nil recorder is allowed and means analytics are disabled.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, channel, status string, at time.Time) error
}

// RedisSink keeps hourly per-channel per-status delivery counters in Redis.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

// RecordStatus bumps the counter bucket for one status transition.
func (s *RedisSink) RecordStatus(ctx context.Context, channel, status string, at time.Time) error {
	key := buildKey(channel, status, at)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func buildKey(channel, status string, t time.Time) string {
	return fmt.Sprintf("crm:dlr:%s:%s:%s", channel, status, t.UTC().Format("2006010215"))
}
