package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	StoreName string `json:"store_name"`
	Enabled   bool   `json:"enabled"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got profile
	assert.ErrorIs(t, c.Get(ctx, "seller:1", &got), ErrCacheMiss)

	in := profile{StoreName: "Solar Shed", Enabled: true}
	require.NoError(t, c.Set(ctx, "seller:1", in, time.Minute))
	in.StoreName = "changed"

	require.NoError(t, c.Get(ctx, "seller:1", &got))
	assert.Equal(t, "Solar Shed", got.StoreName)
	assert.True(t, got.Enabled)

	require.NoError(t, c.Delete(ctx, "seller:1"))
	assert.ErrorIs(t, c.Get(ctx, "seller:1", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", profile{}, -time.Second))
	var got profile
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestNewRedisCacheWithoutClient(t *testing.T) {
	c := NewRedisCache(nil, "symbiotic:")
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}
