package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, limit int, opts ...Option[string, int]) *Cache[string, int] {
	t.Helper()
	c, err := New[string, int](limit, opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		_, err := New[string, int](limit)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestEvictsOldestInserted(t *testing.T) {
	c := newCache(t, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.TryGet("a")
	assert.False(t, ok)
	v, ok := c.TryGet("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = c.TryGet("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, c.Count())
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		limit, extra int
	}{
		{1, 1},
		{3, 2},
		{10, 25},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d,extra=%d", tt.limit, tt.extra), func(t *testing.T) {
			c := newCache(t, tt.limit)
			for i := 0; i < tt.limit+tt.extra; i++ {
				c.Set(fmt.Sprint(i), i)
			}
			assert.Equal(t, tt.limit, c.Count())
			for i := 0; i < tt.extra; i++ {
				assert.False(t, c.Contains(fmt.Sprint(i)), "key %d should be evicted", i)
			}
			for i := tt.extra; i < tt.limit+tt.extra; i++ {
				v, ok := c.TryGet(fmt.Sprint(i))
				assert.True(t, ok)
				assert.Equal(t, i, v)
			}
		})
	}
}

func TestOverwriteKeepsPosition(t *testing.T) {
	c := newCache(t, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	assert.Equal(t, 2, c.Count())
	v, _ := c.TryGet("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	// "a" is still the oldest insertion.
	c.Set("c", 3)
	assert.False(t, c.Contains("a"))
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestReadsDoNotRefresh(t *testing.T) {
	c := newCache(t, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	for i := 0; i < 5; i++ {
		c.TryGet("a")
	}
	c.Set("c", 3)
	assert.False(t, c.Contains("a"))
}

func TestRemoveAndClear(t *testing.T) {
	c := newCache(t, 3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	// Freed capacity is reused without evicting.
	c.Set("d", 4)
	assert.Equal(t, []string{"a", "c", "d"}, c.Keys())
	c.Set("e", 5)
	assert.Equal(t, []string{"c", "d", "e"}, c.Keys())

	c.Clear()
	assert.Zero(t, c.Count())
	assert.Empty(t, c.Keys())
	assert.Equal(t, 3, c.Limit())

	c.Set("f", 6)
	assert.Equal(t, []string{"f"}, c.Keys())
}

func TestEvictHook(t *testing.T) {
	var evicted []string
	c := newCache(t, 1, WithEvictHook(func(k string, v int) {
		evicted = append(evicted, fmt.Sprintf("%s=%d", k, v))
	}))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Remove("b")
	c.Set("c", 3)
	c.Set("d", 4)
	c.Clear()
	assert.Equal(t, []string{"a=1", "c=3"}, evicted)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "h5view")
	c := newCache(t, 2, WithMetrics[string, int](m))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.TryGet("a")
	c.TryGet("b")
	c.TryGet("c")
	c.Remove("c")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries))

	c.Clear()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.entries))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestConcurrentAccess(t *testing.T) {
	c := newCache(t, 16)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := fmt.Sprintf("%d-%d", w, i%40)
				c.Set(k, i)
				c.TryGet(k)
				if i%7 == 0 {
					c.Remove(k)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Count(), 16)
	assert.Len(t, c.Keys(), c.Count())
}
