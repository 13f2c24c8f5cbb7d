package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "recupio:tokens:"

// RedisRegistry is a Registry shared by every instance through Redis. Each
// entry lives for the remaining lifetime of its token.
type RedisRegistry struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRegistry creates a registry on top of client.
func NewRedisRegistry(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

func (r *RedisRegistry) RegisterSeen(ctx context.Context, userID, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	err := r.client.SetNX(ctx, redisKeyPrefix+registryKey(userID, token), expiresAt.Unix(), ttl).Err()
	if err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Revoke(ctx context.Context, userID, token string) (bool, error) {
	n, err := r.client.Del(ctx, redisKeyPrefix+registryKey(userID, token)).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("scan tokens: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
