package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// RedisStore keeps resolved labels in Redis as JSON.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the expiry of entries. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to addr.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "warroom:geocode:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(label string) string {
	return s.prefix + label
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, label string) (geo.Coordinates, bool, error) {
	val, err := s.client.Get(ctx, s.key(label)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return geo.Coordinates{}, false, nil
		}
		return geo.Coordinates{}, false, fmt.Errorf("failed to read from redis: %w", err)
	}
	var c geo.Coordinates
	if err := json.Unmarshal(val, &c); err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("failed to decode %q: %w", label, err)
	}
	return c, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, label string, c geo.Coordinates) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", label, err)
	}
	if err := s.client.Set(ctx, s.key(label), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
