// Package redis implements repository.RevocationStore on Redis.
//
// Each revoked token id is a key with a TTL matching the token's remaining
// lifetime, so Redis expires entries on its own and nothing needs pruning.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "daily-diet:revoked:"

// Store is a Redis-backed revocation list.
type Store struct {
	client *goredis.Client
}

// New connects to Redis and pings it so a bad address fails at startup.
func New(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &Store{client: client}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func key(tokenID string) string {
	return keyPrefix + tokenID
}

// Revoke marks tokenID as logged out until the given time. A token that has
// already expired needs no entry.
func (s *Store) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoking session: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has a live revocation entry.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: checking session: %w", err)
	}
	return n > 0, nil
}
