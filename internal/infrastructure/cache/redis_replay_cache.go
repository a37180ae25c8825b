package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/pkg/config"
)

var _ idempotency.ReplayCache = (*RedisReplayCache)(nil)

// RedisReplayCache guarda en Redis los registros de idempotencia ya liquidados.
type RedisReplayCache struct {
	client redis.UniversalClient
}

// NewRedisReplayCache conecta con REDIS_ADDR.
func NewRedisReplayCache(cfg config.RedisConfig) *RedisReplayCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisReplayCache{client: client}
}

// NewRedisReplayCacheWithClient usa un cliente ya construido.
func NewRedisReplayCacheWithClient(client redis.UniversalClient) *RedisReplayCache {
	return &RedisReplayCache{client: client}
}

func (c *RedisReplayCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReplayCache) Close() error {
	return c.client.Close()
}

func (c *RedisReplayCache) Get(ctx context.Context, key string) (*entity.IdempotencyRecord, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec entity.IdempotencyRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, false, err
	}
	if !rec.Completed {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (c *RedisReplayCache) Set(ctx context.Context, key string, rec *entity.IdempotencyRecord, ttl time.Duration) error {
	if rec == nil || !rec.Completed {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
