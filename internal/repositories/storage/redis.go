package storage

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-codex/internal/errors"
	redisclient "github.com/KirkDiggler/rpg-codex/internal/redis"
)

const defaultKeyPrefix = "codex:"

type redisRepository struct {
	client redisclient.Client
	prefix string
}

// RedisConfig contains configuration for the Redis storage repository.
type RedisConfig struct {
	Client redisclient.Client
	// KeyPrefix namespaces every key (optional, defaults to "codex:")
	KeyPrefix string
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a new Redis-backed storage repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &redisRepository{
		client: cfg.Client,
		prefix: prefix,
	}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.Key == "" {
		return nil, errors.InvalidArgument(errKeyEmpty)
	}

	result, err := r.client.Get(ctx, r.prefix+input.Key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("key %s not found", input.Key)
		}
		return nil, errors.Wrapf(err, "failed to get key %s", input.Key)
	}

	return &GetOutput{
		Key:   input.Key,
		Value: []byte(result),
	}, nil
}

func (r *redisRepository) Set(ctx context.Context, input SetInput) (*SetOutput, error) {
	data, err := encode(input.Key, input.Value)
	if err != nil {
		return nil, err
	}

	if err := r.client.Set(ctx, r.prefix+input.Key, data, input.TTL).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to set key %s", input.Key)
	}

	return &SetOutput{Key: input.Key}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.Key == "" {
		return nil, errors.InvalidArgument(errKeyEmpty)
	}

	deleted, err := r.client.Del(ctx, r.prefix+input.Key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete key %s", input.Key)
	}
	if deleted == 0 {
		return nil, errors.NotFoundf("key %s not found", input.Key)
	}

	return &DeleteOutput{}, nil
}
