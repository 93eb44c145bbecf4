package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// other jtis are unaffected
	revoked, err = store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationStoreExpiredTTL(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	// a non-positive ttl means the token already expired on its own
	require.NoError(t, store.Revoke(ctx, "jti-1", 0))
	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-2", time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	revoked, err = store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationStoreConcurrent(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			jti := string(rune('a' + n))
			_ = store.Revoke(ctx, jti, time.Minute)
			_, _ = store.IsRevoked(ctx, jti)
		}(i)
	}
	wg.Wait()

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)
}
