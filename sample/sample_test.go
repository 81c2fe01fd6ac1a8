package sample

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/value"
)

func open(t *testing.T, path string) *hdf5.File {
	t.Helper()
	f, err := hdf5.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.h5")
	require.NoError(t, Write(path))
	f := open(t, path)

	desc, err := f.ReadAttr("/@Description")
	require.NoError(t, err)
	assert.Equal(t, []string{Description}, desc.Strings())

	members, err := f.Root().Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"Group1", "Group2"}, members)

	ds1, err := f.OpenDataset("/Group1/Dataset1")
	require.NoError(t, err)
	a1, err := ds1.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, a1.Int32s())

	ds2, err := f.OpenDataset("/Group2/Dataset2")
	require.NoError(t, err)
	a2, err := ds2.ReadArray()
	require.NoError(t, err)
	m, err := value.Matrix[float64](a2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.1, 1.2, 1.3}, {2.1, 2.2, 2.3}, {3.1, 3.2, 3.3}}, m)
}

func TestWriteSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.h5")
	require.NoError(t, WriteSeries(path, 2500))
	f := open(t, path)

	g, err := f.OpenGroup("/Series")
	require.NoError(t, err)
	members, err := g.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "value", "label", "flags"}, members)

	rows, err := f.ReadAttr("/Series@rows")
	require.NoError(t, err)
	assert.Equal(t, []int64{2500}, rows.Int64s())

	tm, err := g.OpenDataset("time")
	require.NoError(t, err)
	assert.Equal(t, message.LayoutChunked, tm.LayoutClass())
	arr, err := tm.ReadArray()
	require.NoError(t, err)
	times := arr.Float64s()
	require.Len(t, times, 2500)
	assert.Equal(t, 1249.5, times[2499])

	units, err := tm.Attr("units")
	require.NoError(t, err)
	u, err := units.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, u.Strings())

	lbl, err := g.OpenDataset("label")
	require.NoError(t, err)
	labels, err := lbl.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, "row-42", labels.Strings()[42])

	fl, err := g.OpenDataset("flags")
	require.NoError(t, err)
	flags, err := fl.ReadArray()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true}, flags.Bools()[:4])
}

func TestWriteSeriesRejectsEmpty(t *testing.T) {
	assert.Error(t, WriteSeries(filepath.Join(t.TempDir(), "x.h5"), 0))
}
