package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strataseq/cline/resource"
)

func TestLRU_Eviction(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU(50, rc) // cache limit 50, global budget 100
	ctx := context.Background()

	k1 := Key{Kind: KindBlob, Path: "matrix.bin", Offset: 0}
	k2 := Key{Kind: KindBlob, Path: "matrix.bin", Offset: 4096}
	k3 := Key{Kind: KindBlob, Path: "matrix.bin", Offset: 8192}

	c.Set(ctx, k1, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, int64(20), rc.MemoryUsage())

	c.Set(ctx, k2, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	// Third block pushes size to 60 > 50; k1 is least recently used.
	c.Set(ctx, k3, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	_, ok := c.Get(ctx, k1)
	assert.False(t, ok, "k1 should be evicted")

	_, ok = c.Get(ctx, k2)
	assert.True(t, ok)

	_, ok = c.Get(ctx, k3)
	assert.True(t, ok)
}

func TestLRU_RecencyOrder(t *testing.T) {
	c := NewLRU(40, nil)
	ctx := context.Background()

	k1 := Key{Kind: KindBlob, Path: "a", Offset: 0}
	k2 := Key{Kind: KindBlob, Path: "b", Offset: 0}

	c.Set(ctx, k1, make([]byte, 20))
	c.Set(ctx, k2, make([]byte, 20))

	// Touch k1 so k2 becomes the eviction candidate.
	_, ok := c.Get(ctx, k1)
	assert.True(t, ok)

	c.Set(ctx, Key{Kind: KindBlob, Path: "c", Offset: 0}, make([]byte, 20))

	_, ok = c.Get(ctx, k1)
	assert.True(t, ok, "recently used block should survive")
	_, ok = c.Get(ctx, k2)
	assert.False(t, ok, "stale block should be evicted")
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU(1024, nil)
	ctx := context.Background()

	c.Set(ctx, Key{Kind: KindBlob, Path: "report.bin", Offset: 0}, make([]byte, 10))
	c.Set(ctx, Key{Kind: KindBlob, Path: "report.bin", Offset: 4096}, make([]byte, 10))
	c.Set(ctx, Key{Kind: KindBlob, Path: "other.bin", Offset: 0}, make([]byte, 10))

	c.Invalidate(func(k Key) bool { return k.Path == "report.bin" })

	assert.Equal(t, int64(10), c.Size())
	_, ok := c.Get(ctx, Key{Kind: KindBlob, Path: "other.bin", Offset: 0})
	assert.True(t, ok)
}

func TestLRU_OversizedBlockNotAdmitted(t *testing.T) {
	c := NewLRU(10, nil)
	ctx := context.Background()

	k := Key{Kind: KindBlob, Path: "big", Offset: 0}
	c.Set(ctx, k, make([]byte, 100))

	_, ok := c.Get(ctx, k)
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}
