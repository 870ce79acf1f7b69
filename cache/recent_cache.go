package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecentList keeps each user's most-recently-played tracks in a Redis
// list, most recent first.
type RedisRecentList struct {
	client redis.Cmdable
}

// NewRedisRecentList wraps a Redis client as a recently-played store.
func NewRedisRecentList(client redis.Cmdable) *RedisRecentList {
	return &RedisRecentList{client: client}
}

// recentListTTL keeps idle users' lists from living in Redis forever; every
// push refreshes it.
const recentListTTL = 30 * 24 * time.Hour

func recentKey(userID int64) string {
	return fmt.Sprintf("recent:%d", userID)
}

// Push prepends trackID to the user's list, trims it to capacity evicting
// the oldest entries, and refreshes the list's expiry.
func (l *RedisRecentList) Push(ctx context.Context, userID, trackID int64, capacity int) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := recentKey(userID)
	if err := l.client.LPush(ctx, key, trackID).Err(); err != nil {
		return fmt.Errorf("pushing recent track: %w", err)
	}
	if err := l.client.LTrim(ctx, key, 0, int64(capacity-1)).Err(); err != nil {
		return fmt.Errorf("trimming recent list: %w", err)
	}
	if err := l.Expire(ctx, userID, recentListTTL); err != nil {
		return fmt.Errorf("refreshing recent list ttl: %w", err)
	}
	return nil
}

// Recent returns up to limit track IDs, most recent first.
func (l *RedisRecentList) Recent(ctx context.Context, userID int64, limit int) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	vals, err := l.client.LRange(ctx, recentKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recent list: %w", err)
	}

	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Expire refreshes the TTL on the user's recent list.
func (l *RedisRecentList) Expire(ctx context.Context, userID int64, ttl time.Duration) error {
	return l.client.Expire(ctx, recentKey(userID), ttl).Err()
}
