package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"channelgate/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Admin listing cache
	GetSubscriptionList(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	SetSubscriptionList(ctx context.Context, limit, offset int, subs []*models.Subscription, ttl time.Duration) error
	InvalidateSubscriptionLists(ctx context.Context) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) error

	// Generic string operations (bot identity, one-off flags)
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCacheService{client: client}
}

func listKey(limit, offset int) string {
	return fmt.Sprintf("channelgate:subscriptions:%d:%d", limit, offset)
}

func (r *redisCacheService) GetSubscriptionList(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	data, err := r.client.Get(ctx, listKey(limit, offset)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var subs []*models.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *redisCacheService) SetSubscriptionList(ctx context.Context, limit, offset int, subs []*models.Subscription, ttl time.Duration) error {
	data, err := json.Marshal(subs)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, listKey(limit, offset), data, ttl).Err()
}

func (r *redisCacheService) InvalidateSubscriptionLists(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "channelgate:subscriptions:*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Get(ctx, "channelgate:ratelimit:"+key).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return count >= limit, nil
}

func (r *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	fullKey := "channelgate:ratelimit:" + key
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, "channelgate:"+key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, "channelgate:"+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, "channelgate:"+key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
