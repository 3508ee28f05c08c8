package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	assert.NoError(t, c.Set(ctx, "k", "v", 0))
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	assert.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry should still be live")

	now = now.Add(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry should have expired")
}

func TestRedis_ImplementsCache(t *testing.T) {
	var _ Cache = NewRedis("127.0.0.1:0")
	var _ Cache = NewMemory()
}
