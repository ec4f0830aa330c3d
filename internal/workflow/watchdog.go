package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// watchdogKey is the sorted set holding one deadline per workflow,
// scored by unix time.
const watchdogKey = "reviewflow:watchdog"

// RedisWatchdog schedules named deadlines in a Redis sorted set. Arm and
// Disarm are keyed by workflow ID, so independent workflows never contend.
type RedisWatchdog struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisWatchdog connects to Redis and verifies it is reachable.
func NewRedisWatchdog(redisURL string, logger *zap.Logger) (*RedisWatchdog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisWatchdog{rdb: rdb, logger: logger}, nil
}

// Arm schedules (or reschedules) the deadline for a workflow.
func (w *RedisWatchdog) Arm(ctx context.Context, id string, ttl time.Duration) error {
	deadline := time.Now().Add(ttl)
	err := w.rdb.ZAdd(ctx, watchdogKey, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("arm watchdog for %s: %w", id, err)
	}
	w.logger.Debug("watchdog armed",
		zap.String("workflow_id", id),
		zap.Time("deadline", deadline))
	return nil
}

// Disarm removes the deadline for a workflow. A timer that already fired
// or never existed counts as success.
func (w *RedisWatchdog) Disarm(ctx context.Context, id string) error {
	removed, err := w.rdb.ZRem(ctx, watchdogKey, id).Result()
	if err != nil {
		return fmt.Errorf("disarm watchdog for %s: %w", id, err)
	}
	if removed == 0 {
		w.logger.Debug("watchdog already absent", zap.String("workflow_id", id))
	}
	return nil
}

// Due returns the workflow IDs whose deadline is at or before now.
func (w *RedisWatchdog) Due(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := w.rdb.ZRangeByScore(ctx, watchdogKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due watchdogs: %w", err)
	}
	return ids, nil
}

// Close shuts down the Redis connection.
func (w *RedisWatchdog) Close() error {
	return w.rdb.Close()
}
