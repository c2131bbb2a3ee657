package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/freshharvest/market-backend/pkg/config"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis instance. Every key is scoped under
// the configured key prefix so unrelated data in the same database is left
// alone by Clear.
type Redis struct {
	raw    *redis.Client
	prefix string
	logg   *logger.Logger
}

// NewRedis bootstraps a Redis-backed store with pooling/timeouts and
// verifies connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig, storageCfg config.StorageConfig, logg *logger.Logger) (*Redis, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	prefix := strings.TrimSuffix(storageCfg.KeyPrefix, ":")
	if prefix == "" {
		prefix = "fhm"
	}

	return &Redis{raw: raw, prefix: prefix + ":", logg: logg}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.raw.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read kv entry")
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithField(ctx, "key", key), "dropping corrupt kv entry")
		}
		return false, nil
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode kv entry")
	}
	if err := r.raw.Set(ctx, r.key(key), raw, 0).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write kv entry")
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.raw.Del(ctx, r.key(key)).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete kv entry")
	}
	return nil
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	count, err := r.raw.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "check kv entry")
	}
	return count > 0, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.ClearPrefix(ctx, "")
}

func (r *Redis) ClearPrefix(ctx context.Context, prefix string) error {
	pattern := r.key(prefix) + "*"
	iter := r.raw.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.raw.Del(ctx, iter.Val()).Err(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear kv prefix")
		}
	}
	if err := iter.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "scan kv prefix")
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.raw.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.raw.Close()
}
