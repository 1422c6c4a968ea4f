package loginlimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "loginlimit:"

// Redis is the shared Store for multi-process deployments.
// The counter key expires after Window, which gives the decay for free.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Fail(ctx context.Context, username string) (int, error) {
	key := keyPrefix + username
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		// Primeira falha abre a janela.
		if err := r.client.Expire(ctx, key, Window).Err(); err != nil {
			return int(n), err
		}
	}
	return int(n), nil
}

func (r *Redis) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := r.client.Get(ctx, keyPrefix+username).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= MaxAttempts, nil
}

func (r *Redis) Reset(ctx context.Context, username string) error {
	return r.client.Del(ctx, keyPrefix+username).Err()
}
