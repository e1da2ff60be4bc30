package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// keyPrefix namespaces engine state keys so the engine can share a database
// with other consumers.
const keyPrefix = "dropsd:state:"

// KV implements domain.KVStore over plain Redis strings holding JSON values.
// Values have no TTL: engine state lives until overwritten.
type KV struct {
	rdb *redis.Client
}

// NewKV creates a KV backed by the given Client.
func NewKV(c *Client) *KV {
	return &KV{rdb: c.Underlying()}
}

func stateKey(key string) string { return keyPrefix + key }

// Get returns the stored value. It returns domain.ErrNotFound when the key
// does not exist.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, stateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return data, nil
}

// Set stores the value under the namespaced key.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, stateKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.KVStore = (*KV)(nil)
