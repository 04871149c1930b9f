package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memWithClock() (*Memory, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.Now = func() time.Time { return now }
	return m, &now
}

func TestMemorySetGetDel(t *testing.T) {
	m, _ := memWithClock()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, m.Del(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	m, now := memWithClock()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	*now = now.Add(time.Minute + time.Second)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := m.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIncrWindow(t *testing.T) {
	m, now := memWithClock()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := m.Incr(ctx, "cnt", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// The expiry anchors to the first increment; later ones do not extend it.
	*now = now.Add(time.Hour + time.Second)
	n, err := m.Incr(ctx, "cnt", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryTTL(t *testing.T) {
	m, _ := memWithClock()
	ctx := context.Background()

	ttl, err := m.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, -2*time.Second, ttl)

	require.NoError(t, m.Set(ctx, "forever", "v", 0))
	ttl, err = m.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, -1*time.Second, ttl)

	require.NoError(t, m.Set(ctx, "k", "v", 5*time.Minute))
	ttl, err = m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}
