package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each profile key under storefront:<profile>:<key>.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	quota  int
}

// NewRedis wraps client. A zero ttl keeps keys until removed.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, quota: DefaultQuota}
}

// WithQuota overrides DefaultQuota; quota <= 0 disables the check.
func (r *Redis) WithQuota(quota int) *Redis {
	r.quota = quota
	return r
}

func (r *Redis) Scope(profileID string) Storage {
	return &redisScope{r: r, profile: profileID}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisScope struct {
	r       *Redis
	profile string
}

func (s *redisScope) key(k string) string {
	return fmt.Sprintf("storefront:%s:%s", s.profile, k)
}

func (s *redisScope) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := s.r.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (s *redisScope) SetItem(ctx context.Context, key, value string) error {
	if err := checkQuota(value, s.r.quota); err != nil {
		return err
	}
	if err := s.r.client.Set(ctx, s.key(key), value, s.r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisScope) RemoveItem(ctx context.Context, key string) error {
	if err := s.r.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
