package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// Only the holder's token may delete the key.
var unlockScript = goredis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Redis is a Locker shared by every process using the same Redis.
type Redis struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis locker. Keys are stored as prefix+key and expire
// after ttl if never released.
func NewRedis(client goredis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) TryLock(ctx context.Context, key string) (Release, error) {
	fullKey := r.prefix + key
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, r.client, []string{fullKey}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}
