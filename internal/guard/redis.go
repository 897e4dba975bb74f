package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisPrefix = "guard:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes RedisLocker.
type RedisConfig struct {
	Prefix    string
	TTL       time.Duration
	Wait      time.Duration
	RetryStep time.Duration
	Logger    *zap.Logger
}

// RedisLocker holds pair locks in Redis so several API instances share them.
type RedisLocker struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	wait      time.Duration
	retryStep time.Duration
	logger    *zap.Logger
}

// NewRedisLocker builds a RedisLocker on an existing client.
func NewRedisLocker(client *redis.Client, cfg RedisConfig) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRedisPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	if cfg.RetryStep <= 0 {
		cfg.RetryStep = 20 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RedisLocker{
		client:    client,
		prefix:    cfg.Prefix,
		ttl:       cfg.TTL,
		wait:      cfg.Wait,
		retryStep: cfg.RetryStep,
		logger:    cfg.Logger,
	}
}

// Lock polls SET NX until the key is taken, the wait budget runs out or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire pair lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		timer := time.NewTimer(l.retryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(redisKey, token) })
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("failed to release pair lock", zap.String("key", redisKey), zap.Error(err))
	}
}
