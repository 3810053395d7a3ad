package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard 判断一个 webhook 事件是否第一次投递
type Guard interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

// Noop 不做去重，所有事件都视为首次投递
type Noop struct{}

func (Noop) FirstDelivery(context.Context, string) (bool, error) { return true, nil }

// Redis 用 SET NX 记录已处理的事件 ID，记录在 ttl 后过期
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// NewClient 由 URL（如 redis://localhost:6379/0）创建客户端
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	set, err := r.rdb.SetNX(ctx, key(eventID), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("check delivery %s: %w", eventID, err)
	}
	return set, nil
}

func key(eventID string) string {
	return "dedup:line:" + eventID
}
