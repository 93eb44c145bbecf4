package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RevocationStore tracks revoked token IDs. It is constructed once at startup and
// shared by the auth service; implementations must be safe for concurrent use.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "revoked_jti:"

// RedisRevocationStore keeps the denylist in Redis, so revocations survive process
// restarts and are visible to every replica. Entries expire with the token itself.
type RedisRevocationStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRevocationStore constructs a Redis-backed revocation store.
func NewRedisRevocationStore(client *redis.Client, logger *zap.Logger) *RedisRevocationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRevocationStore{client: client, logger: logger}
}

// Revoke adds the token ID to the denylist. Revoking an already revoked jti is a no-op.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing left to deny.
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke jti %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether the token ID is on the denylist.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check jti %s: %w", jti, err)
	}
	return n > 0, nil
}

// MemoryRevocationStore is the in-process fallback used when Redis is not configured.
// Expired entries are pruned lazily on lookup to bound growth.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore constructs an empty in-memory revocation store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

// Revoke adds the token ID to the denylist until its expiry.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.revoked[jti] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token ID is on the denylist.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	expiry, ok := s.revoked[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		s.mu.Lock()
		delete(s.revoked, jti)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
