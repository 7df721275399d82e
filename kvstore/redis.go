package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxUpdateAttempts bounds how often Redis.Update retries after its watched
// key changed underneath it.
const maxUpdateAttempts = 16

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // prepended as "<prefix>:" to every key
}

// Redis stores values in a Redis database.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to cfg.Addr and verifies the connection with PING.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("kvstore: redis ping failed: %w", err)
	}

	return NewRedisFromClient(rdb, cfg.Prefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: redis get: %w", err)
	}
	return val, nil
}

// Set implements Store. Values never expire.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("kvstore: redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("kvstore: redis del: %w", err)
	}
	return nil
}

// Update implements Updater with WATCH/MULTI. fn is re-run when another
// client modifies the key between the read and EXEC.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	k := r.key(key)

	var fnErr error
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		found := true
		switch {
		case errors.Is(err, redis.Nil):
			current, found = nil, false
		case err != nil:
			return err
		}

		next, write, err := fn(current, found)
		if err != nil {
			fnErr = err
			return err
		}
		if !write {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		fnErr = nil
		err := r.client.Watch(ctx, txf, k)
		switch {
		case err == nil:
			return nil
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("kvstore: redis update: %w", err)
		}
	}
	return conflictError(key, maxUpdateAttempts)
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
