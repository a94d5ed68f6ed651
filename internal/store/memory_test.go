package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_GetSetDel(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "a", "1", 0))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, kv.Del(ctx, "a", "not-there"))
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_TTLExpires(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Unix(1700000000, 0)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "sample", "x", time.Second))
	_, err := kv.Get(ctx, "sample")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = kv.Get(ctx, "sample")
	assert.ErrorIs(t, err, ErrMiss)
}
