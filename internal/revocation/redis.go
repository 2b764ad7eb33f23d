package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "revoked:"

// RedisLedger stores one key per jti and lets Redis expire it.
type RedisLedger struct {
	Client redis.UniversalClient
	Prefix string
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{Client: client, Prefix: DefaultKeyPrefix}
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(o RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func (l *RedisLedger) key(jti string) string { return l.Prefix + jti }

func (l *RedisLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.Client.Set(ctx, l.key(jti), Sentinel, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, jti, err)
	}
	return nil
}

func (l *RedisLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.Client.Exists(ctx, l.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrUnavailable, jti, err)
	}
	return n > 0, nil
}

func (l *RedisLedger) Ping(ctx context.Context) error {
	if err := l.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
