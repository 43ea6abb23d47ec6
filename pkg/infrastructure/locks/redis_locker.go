package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisOptions configures a RedisLocker
type RedisOptions struct {
	Host         string
	Port         int
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	PollInterval time.Duration
}

// RedisLocker is a Locker shared by every process connected to the same redis
type RedisLocker struct {
	client *redis.Client
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedisLocker connects to redis and returns a locker
func NewRedisLocker(opts RedisOptions, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return NewRedisLockerWithClient(client, opts, logger), nil
}

// NewRedisLockerWithClient creates a locker on an existing client
func NewRedisLockerWithClient(client *redis.Client, opts RedisOptions, logger *zap.Logger) *RedisLocker {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "fuelrecon:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, opts: opts, logger: logger}
}

// Verify interface compliance
var _ Locker = (*RedisLocker)(nil)

// Lock polls SETNX until the key is acquired or ctx is done. The lock expires after TTL.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := l.opts.KeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.opts.TTL).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to acquire lock %s", key)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timed out waiting for lock %s", key)
		case <-ticker.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// Close closes the redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
