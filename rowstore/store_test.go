package rowstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/rows"
	"github.com/robert-malhotra/h5view/value"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable() *rows.Table {
	return &rows.Table{Columns: []rows.Column{
		{Name: "n", Kind: value.Int32, Values: []value.Value{value.OfInt32(1), value.OfInt32(-2)}},
		{Name: "x", Kind: value.Float64, Values: []value.Value{value.OfFloat64(0.25)}},
		{Name: "s", Kind: value.String, Values: []value.Value{value.OfString("a"), value.OfString("")}},
		{Name: "empty", Kind: value.Bool},
	}}
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	key := Key(42, "/Group1/Dataset1")
	want := sampleTable()

	require.NoError(t, s.Put(key, want))
	got, err := s.Get(key)
	require.NoError(t, err)

	require.Equal(t, want.Names(), got.Names())
	assert.Equal(t, want.NumRows(), got.NumRows())
	for j, col := range want.Columns {
		assert.Equal(t, col.Kind, got.Columns[j].Kind)
		require.Len(t, got.Columns[j].Values, len(col.Values))
		for i, v := range col.Values {
			assert.True(t, v.Equal(got.Columns[j].Values[i]), "cell %d,%d", i, j)
		}
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(Key(1, "/nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	key := Key(7, "/a")
	require.NoError(t, s.Put(key, sampleTable()))
	require.NoError(t, s.Delete(key))
	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathsAndDeleteSource(t *testing.T) {
	s := openStore(t)
	for _, p := range []string{"/b", "/a", "/a/c"} {
		require.NoError(t, s.Put(Key(5, p), sampleTable()))
	}
	require.NoError(t, s.Put(Key(6, "/other"), sampleTable()))

	paths, err := s.Paths(5)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/a/c", "/b"}, paths)

	require.NoError(t, s.DeleteSource(5))
	paths, err = s.Paths(5)
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = s.Paths(6)
	require.NoError(t, err)
	assert.Equal(t, []string{"/other"}, paths)
}

func TestKeysSeparateSources(t *testing.T) {
	assert.NotEqual(t, Key(1, "/x"), Key(2, "/x"))
	assert.Equal(t, Key(1, "/x"), Key(1, "/x"))
	assert.Equal(t, []byte{'t', 0, 0, 0, 0, 0, 0, 0, 2}, upperBound(sourcePrefix(1)))
	assert.Nil(t, upperBound([]byte{0xff, 0xff}))
}
