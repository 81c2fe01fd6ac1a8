package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/cache"
	"github.com/robert-malhotra/h5view/rowstore"
	"github.com/robert-malhotra/h5view/sample"
	"github.com/robert-malhotra/h5view/tree"
)

func sampleSource(t *testing.T) tree.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.h5")
	require.NoError(t, sample.WriteSeries(path, 20))
	return tree.FileSource(path)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	s1, err := m.Open(sampleSource(t))
	require.NoError(t, err)
	s2, err := m.Open(sampleSource(t))
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.Equal(t, 2, m.Len())
	assert.Len(t, m.IDs(), 2)

	got, err := m.Get(s1.ID())
	require.NoError(t, err)
	assert.Same(t, s1, got)
	assert.False(t, s1.Opened().IsZero())

	require.NoError(t, m.Close(s1.ID()))
	_, err = m.Get(s1.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Close(s1.ID()), ErrNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestOpenFailures(t *testing.T) {
	m := NewManager()
	_, err := m.Open(tree.FileSource(filepath.Join(t.TempDir(), "missing.h5")))
	assert.ErrorIs(t, err, tree.ErrCannotOpenFile)

	_, err = NewManager(WithCacheLimit(0)).Open(sampleSource(t))
	assert.ErrorIs(t, err, cache.ErrInvalidArgument)
	assert.Zero(t, m.Len())
}

func TestSelectCaches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(WithCacheLimit(2), WithMetrics(cache.NewMetrics(reg, "test")))
	s, err := m.Open(sampleSource(t))
	require.NoError(t, err)
	ctx := context.Background()

	t1, err := s.Select(ctx, "/Group1/Dataset1")
	require.NoError(t, err)
	assert.Equal(t, 10, t1.NumRows())

	again, err := s.Select(ctx, "Group1/Dataset1/")
	require.NoError(t, err)
	assert.Same(t, t1, again)

	_, err = s.Select(ctx, "/Group2/Dataset2")
	require.NoError(t, err)
	_, err = s.Select(ctx, "/Series")
	require.NoError(t, err)
	assert.Equal(t, []string{"/Group2/Dataset2", "/Series"}, s.Cache().Keys())

	// Evicted tables are rebuilt, not shared.
	rebuilt, err := s.Select(ctx, "/Group1/Dataset1")
	require.NoError(t, err)
	assert.NotSame(t, t1, rebuilt)
	assert.Equal(t, t1.Names(), rebuilt.Names())

	require.NoError(t, s.Invalidate("/Group1/Dataset1"))
	assert.False(t, s.Cache().Contains("/Group1/Dataset1"))

	_, err = s.Select(ctx, "/missing")
	assert.ErrorIs(t, err, tree.ErrNotFound)
}

func TestSelectReloadsDroppedPayload(t *testing.T) {
	s, err := NewManager().Open(sampleSource(t))
	require.NoError(t, err)

	n, ok := s.Tree().Lookup("/Series/time")
	require.True(t, ok)
	n.Dataset.Data = nil

	table, err := s.Select(context.Background(), "/Series/time")
	require.NoError(t, err)
	assert.Equal(t, 20, table.NumRows())
	assert.True(t, n.Dataset.IsDataLoaded())
}

func TestSelectUsesStore(t *testing.T) {
	store, err := rowstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	src := sampleSource(t)
	m := NewManager(WithStore(store))
	s, err := m.Open(src)
	require.NoError(t, err)

	first, err := s.Select(context.Background(), "/Series")
	require.NoError(t, err)

	fp, err := tree.Fingerprint(src)
	require.NoError(t, err)
	paths, err := store.Paths(fp)
	require.NoError(t, err)
	assert.Equal(t, []string{"/Series"}, paths)

	// A new session for the same bytes is served from the store.
	s2, err := m.Open(src)
	require.NoError(t, err)
	fromStore, err := s2.Select(context.Background(), "/Series")
	require.NoError(t, err)
	assert.Equal(t, first.Names(), fromStore.Names())
	assert.Equal(t, first.NumRows(), fromStore.NumRows())

	require.NoError(t, s2.Invalidate("/Series"))
	paths, err = store.Paths(fp)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBytesSourceSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.h5")
	require.NoError(t, sample.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := NewManager().Open(tree.BytesSource("upload.h5", data))
	require.NoError(t, err)
	table, err := s.Select(context.Background(), "/Group2/Dataset2")
	require.NoError(t, err)
	assert.Equal(t, 3, table.NumColumns())
}
