package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const followersCountKeyPrefix = "campushub:club:followers:"

// FollowerCountCache is a read-through copy of clubs.followers_count.
// MongoDB stays the source of truth; entries are invalidated after each
// committed toggle and expire after a TTL.
type FollowerCountCache interface {
	GetFollowersCount(ctx context.Context, clubID string) (int64, bool, error)
	SetFollowersCount(ctx context.Context, clubID string, count int64) error
	InvalidateFollowersCount(ctx context.Context, clubID string) error
}

// RedisFollowerCountCache implements FollowerCountCache backed by Redis.
type RedisFollowerCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFollowerCountCache(client *redis.Client, ttl time.Duration) *RedisFollowerCountCache {
	return &RedisFollowerCountCache{client: client, ttl: ttl}
}

func followersCountKey(clubID string) string {
	return followersCountKeyPrefix + clubID
}

// GetFollowersCount returns (count, true, nil) on hit and (0, false, nil) on miss.
func (c *RedisFollowerCountCache) GetFollowersCount(ctx context.Context, clubID string) (int64, bool, error) {
	val, err := c.client.Get(ctx, followersCountKey(clubID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get followers count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse followers count: %w", err)
	}
	return count, true, nil
}

func (c *RedisFollowerCountCache) SetFollowersCount(ctx context.Context, clubID string, count int64) error {
	if err := c.client.Set(ctx, followersCountKey(clubID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

func (c *RedisFollowerCountCache) InvalidateFollowersCount(ctx context.Context, clubID string) error {
	if err := c.client.Del(ctx, followersCountKey(clubID)).Err(); err != nil {
		return fmt.Errorf("redis del followers count: %w", err)
	}
	return nil
}

var _ FollowerCountCache = (*RedisFollowerCountCache)(nil)
