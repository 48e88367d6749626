// Package redisstore backs the connector's short-lived values with Redis so
// several connector processes can share one pending authorization.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "connector:"

type EphemeralStore struct {
	client redis.UniversalClient
	prefix string
}

var _ core.EphemeralStore = (*EphemeralStore)(nil)

type Option func(*EphemeralStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *EphemeralStore) {
		s.prefix = prefix
	}
}

func NewEphemeralStore(client redis.UniversalClient, opts ...Option) (*EphemeralStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	store := &EphemeralStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// NewClient builds a client from connector settings.
func NewClient(cfg core.RedisConfig) (redis.UniversalClient, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, fmt.Errorf("redisstore: redis address is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

func (s *EphemeralStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redisstore: load %q: %w", key, err)
	}
	return value, true, nil
}

func (s *EphemeralStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("redisstore: key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("redisstore: ttl must be positive")
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: persist %q: %w", key, err)
	}
	return nil
}

func (s *EphemeralStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *EphemeralStore) key(key string) string {
	return s.prefix + strings.TrimSpace(key)
}
