package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlloc(t *testing.T) {
	a := New(96)

	assert.Equal(t, uint64(96), a.Alloc(100))
	assert.Equal(t, uint64(196), a.Alloc(200))
	assert.Equal(t, uint64(396), a.Alloc(0), "zero size reserves nothing")
	assert.Equal(t, uint64(396), a.Alloc(50))
	assert.Equal(t, uint64(446), a.EOFAddr())

	assert.Equal(t, Stats{Blocks: 3, Bytes: 350, Largest: 200}, a.Stats())
	assert.Equal(t, []Block{{Addr: 96, Size: 100}, {Addr: 196, Size: 200}, {Addr: 396, Size: 50}}, a.Blocks())
	require.NoError(t, a.Validate())
}

func TestRelease(t *testing.T) {
	a := New(0)
	first := a.Alloc(64)
	a.Alloc(32)

	assert.True(t, a.Release(first))
	assert.False(t, a.Release(first), "already released")
	assert.False(t, a.Release(12345), "not a block start")

	s := a.Stats()
	assert.Equal(t, uint64(64), s.Released)
	assert.Equal(t, uint64(32), s.Live())
	assert.True(t, a.Blocks()[0].Released)
}

func TestConcurrentAlloc(t *testing.T) {
	a := New(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				a.Alloc(10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8000), a.EOFAddr())
	assert.Equal(t, 800, a.Stats().Blocks)
	assert.NoError(t, a.Validate())
}
