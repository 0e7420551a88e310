package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/safety"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

const (
	exposureTotalKey     = "exposure:total_usd"
	exposurePerMarketKey = "exposure:per_market"
)

// RedisExposureStore keeps exposure in Redis so restarts and multiple
// gateway instances see the same committed totals.
type RedisExposureStore struct {
	client *redis.Client
}

func NewRedisExposureStore(rc *RedisClient) *RedisExposureStore {
	return &RedisExposureStore{client: rc.Client}
}

func (s *RedisExposureStore) Snapshot(ctx context.Context) (safety.Snapshot, error) {
	pipe := s.client.Pipeline()
	totalCmd := pipe.Get(ctx, exposureTotalKey)
	perMarketCmd := pipe.HGetAll(ctx, exposurePerMarketKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return safety.Snapshot{}, err
	}

	snap := safety.Snapshot{PerMarket: make(map[string]float64)}
	if total, err := totalCmd.Float64(); err == nil {
		snap.TotalUSD = total
	}
	for token, raw := range perMarketCmd.Val() {
		var v float64
		if _, err := fmt.Sscanf(raw, "%g", &v); err == nil {
			snap.PerMarket[token] = v
		}
	}
	return snap, nil
}

func (s *RedisExposureStore) Commit(ctx context.Context, tokenID string, sizeUSD float64) error {
	pipe := s.client.Pipeline()
	pipe.IncrByFloat(ctx, exposureTotalKey, sizeUSD)
	pipe.HIncrByFloat(ctx, exposurePerMarketKey, tokenID, sizeUSD)
	_, err := pipe.Exec(ctx)
	return err
}
