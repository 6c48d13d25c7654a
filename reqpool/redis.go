package reqpool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
)

// RedisPoolConfig configures the remote pool backend. The backoff below
// retries transient connection failures with an initial 10s interval
// capped at 60s, giving up after 5 minutes of continuous failure.
type RedisPoolConfig struct {
	URL string
	TTL time.Duration
}

const (
	redisBackoffInitialInterval = 10 * time.Second
	redisBackoffMaxInterval     = 60 * time.Second
	redisBackoffMaxElapsedTime  = 5 * time.Minute
)

// RedisPool is the TTL'd remote Pool backend. The underlying
// *redis.Client already pools
// connections and reconnects lazily, so RedisPool only needs to add the
// capped backoff retry around the first round trip of a command and is
// otherwise a thin adapter over go-redis.
type RedisPool struct {
	client *redis.Client
	config RedisPoolConfig
	now    clock
}

// NewRedisPool opens (lazily) a connection to config.URL. Dialing itself
// is deferred to the first command, which is then retried on failure.
func NewRedisPool(config RedisPoolConfig) (*RedisPool, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}
	return &RedisPool{client: redis.NewClient(opts), config: config, now: realClock}, nil
}

// withRetry runs op, retrying transient connection failures with capped
// exponential backoff.
func (p *RedisPool) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = redisBackoffInitialInterval
	b.MaxInterval = redisBackoffMaxInterval
	b.MaxElapsedTime = redisBackoffMaxElapsedTime

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransientRedisError(err) {
			return backoff.Permanent(err)
		}
		log.Warn("reqpool: transient redis error, retrying", "err", err)
		return err
	}, backoff.WithContext(b, ctx))
}

func isTransientRedisError(err error) bool {
	if errors.Is(err, redis.Nil) {
		return false
	}
	// Any other error (network, timeout, connection refused) is treated as
	// transient: the backoff loop re-attempts until MaxElapsedTime.
	return true
}

func (p *RedisPool) Add(ctx context.Context, key RequestKey, entity RequestEntity, status StatusWithContext) error {
	data, err := json.Marshal(StoredValue{Entity: entity, Status: status})
	if err != nil {
		return err
	}
	log.Info("RedisPool.add", "key", key.Encode(), "status", status)
	return p.withRetry(ctx, func() error {
		return p.client.Set(ctx, key.Encode(), data, p.config.TTL).Err()
	})
}

func (p *RedisPool) Get(ctx context.Context, key RequestKey) (RequestEntity, StatusWithContext, bool, error) {
	var raw string
	err := p.withRetry(ctx, func() error {
		var getErr error
		raw, getErr = p.client.Get(ctx, key.Encode()).Result()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return nil, StatusWithContext{}, false, nil
	}
	if err != nil {
		return nil, StatusWithContext{}, false, err
	}
	var sv StoredValue
	if err := json.Unmarshal([]byte(raw), &sv); err != nil {
		return nil, StatusWithContext{}, false, err
	}
	return sv.Entity, sv.Status, true, nil
}

func (p *RedisPool) GetStatus(ctx context.Context, key RequestKey) (StatusWithContext, bool, error) {
	_, status, ok, err := p.Get(ctx, key)
	return status, ok, err
}

func (p *RedisPool) UpdateStatus(ctx context.Context, key RequestKey, status StatusWithContext) (StatusWithContext, error) {
	entity, previous, ok, err := p.Get(ctx, key)
	if err != nil {
		return StatusWithContext{}, err
	}
	if !ok {
		return StatusWithContext{}, ErrNotFound
	}
	log.Info("RedisPool.update_status", "key", key.Encode(), "old", previous, "new", status)
	if err := p.Add(ctx, key, entity, status); err != nil {
		return StatusWithContext{}, err
	}
	return previous, nil
}

func (p *RedisPool) Remove(ctx context.Context, key RequestKey) (int, error) {
	var n int64
	err := p.withRetry(ctx, func() error {
		var delErr error
		n, delErr = p.client.Del(ctx, key.Encode()).Result()
		return delErr
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *RedisPool) List(ctx context.Context) (map[string]StatusWithContext, error) {
	var keys []string
	err := p.withRetry(ctx, func() error {
		var keysErr error
		keys, keysErr = p.client.Keys(ctx, "*").Result()
		return keysErr
	})
	if err != nil {
		return nil, err
	}
	result := make(map[string]StatusWithContext, len(keys))
	for _, k := range keys {
		raw, err := p.client.Get(ctx, k).Result()
		if err != nil {
			continue
		}
		var sv StoredValue
		if err := json.Unmarshal([]byte(raw), &sv); err != nil {
			continue
		}
		result[k] = sv.Status
	}
	return result, nil
}

func (p *RedisPool) StoreID(ctx context.Context, key string, id string) error {
	log.Info("RedisPool.store_id", "key", key, "id", id)
	return p.withRetry(ctx, func() error {
		return p.client.Set(ctx, key, id, p.config.TTL).Err()
	})
}

func (p *RedisPool) ReadID(ctx context.Context, key string) (string, error) {
	var id string
	err := p.withRetry(ctx, func() error {
		var getErr error
		id, getErr = p.client.Get(ctx, key).Result()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return id, err
}

func (p *RedisPool) RemoveID(ctx context.Context, key string) error {
	return p.withRetry(ctx, func() error {
		return p.client.Del(ctx, key).Err()
	})
}
