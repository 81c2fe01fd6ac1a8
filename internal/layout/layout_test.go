package layout

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/filter"
	"github.com/robert-malhotra/h5view/internal/message"
)

// memFile is a growable in-memory file.
type memFile struct {
	buf []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, nil
	}
	return copy(p, m.buf[off:]), nil
}

func bump(start uint64) func(int64) uint64 {
	next := start
	return func(size int64) uint64 {
		addr := next
		next += uint64(size)
		return addr
	}
}

func int16s(n int) []byte {
	b := make([]byte, 2*n)
	for i := range n {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(i*7))
	}
	return b
}

func TestCompact(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	c := NewCompact(&message.DataLayout{Class: message.LayoutCompact, CompactData: data}, nil, nil)
	assert.Equal(t, message.LayoutCompact, c.Class())
	assert.Equal(t, 4, c.Size())

	got, err := c.Read()
	require.NoError(t, err)
	got[0] = 0xff
	again, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestContiguous(t *testing.T) {
	f := &memFile{buf: make([]byte, 128)}
	copy(f.buf[100:], []byte{10, 20, 30, 40})
	r := binpkg.NewReader(f, binpkg.DefaultConfig())

	l, err := New(message.NewContiguousLayout(100, 0), message.NewDataspace([]uint64{4}, nil),
		message.NewFixedPointDatatype(1, false, message.OrderLE), nil, r)
	require.NoError(t, err)
	assert.Equal(t, message.LayoutContiguous, l.Class())
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 40}, got)

	undef := NewContiguous(message.NewContiguousLayout(math.MaxUint64, 4), nil, nil, r)
	got, err = undef.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, got)

	undef.SetFill([]byte{7, 9})
	got, err = undef.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 9, 7, 9}, got)
}

func TestFillBytes(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0}, fillBytes(3, nil))
	assert.Equal(t, []byte{1, 2, 3, 1, 2}, fillBytes(5, []byte{1, 2, 3}))
	assert.Empty(t, fillBytes(0, []byte{1}))
}

func TestDataSize(t *testing.T) {
	assert.Equal(t, uint64(96), dataSize(message.NewDataspace([]uint64{3, 4}, nil), message.NewFloatDatatype(8, message.OrderLE)))
	assert.Zero(t, dataSize(nil, message.NewFloatDatatype(8, message.OrderLE)))
}

func TestGrid(t *testing.T) {
	g, err := newGrid([]uint64{3, 3}, []uint32{2, 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), g.count())
	assert.Equal(t, uint64(4), g.chunkBytes())
	assert.Equal(t, []uint64{2, 0}, g.origin(2))

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, []byte{1, 2, 4, 5}, g.extract(data, g.origin(0)))
	assert.Equal(t, []byte{3, 0, 6, 0}, g.extract(data, g.origin(1)))
	assert.Equal(t, []byte{9, 0, 0, 0}, g.extract(data, g.origin(3)))

	out := make([]byte, 9)
	for i := range g.count() {
		o := g.origin(i)
		require.NoError(t, g.place(out, g.extract(data, o), o))
	}
	assert.Equal(t, data, out)
	assert.Error(t, g.place(out, []byte{1}, []uint64{0, 0}))

	_, err = newGrid([]uint64{3}, []uint32{0}, 1)
	assert.Error(t, err)
	_, err = newGrid([]uint64{3}, []uint32{1, 1}, 1)
	assert.Error(t, err)
}

// writeChunked writes data through a ChunkWriter and returns a reader
// over the file with the matching layout message.
func writeChunked(t *testing.T, data []byte, dims []uint64, chunkDims []uint32, esize uint32, fp *message.FilterPipeline) (*binpkg.Reader, *message.DataLayout) {
	t.Helper()
	f := &memFile{}
	var pipeline *filter.Pipeline
	if fp != nil {
		var err error
		pipeline, err = filter.NewPipeline(fp)
		require.NoError(t, err)
	}

	cw := NewChunkWriter(binpkg.NewWriter(f, binpkg.DefaultConfig()), chunkDims, esize, pipeline, bump(64))
	chunks, err := cw.Split(data, dims)
	require.NoError(t, err)
	refs, err := cw.WriteChunks(chunks)
	require.NoError(t, err)
	idx, err := cw.WriteFixedArrayIndex(refs)
	require.NoError(t, err)

	dl := message.NewChunkedLayout(chunkDims, esize, message.ChunkIndexFixedArray)
	dl.ChunkIndexAddr = idx
	return binpkg.NewReader(f, binpkg.DefaultConfig()), dl
}

func TestChunkedRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		dims   []uint64
		chunks []uint32
	}{
		{"1d exact", []uint64{8}, []uint32{4}},
		{"1d edge", []uint64{9}, []uint32{4}},
		{"2d edges", []uint64{5, 3}, []uint32{2, 2}},
		{"3d", []uint64{3, 4, 5}, []uint32{2, 3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 1
			for _, d := range tt.dims {
				n *= int(d)
			}
			data := int16s(n)
			r, dl := writeChunked(t, data, tt.dims, tt.chunks, 2, nil)
			l, err := New(dl, message.NewDataspace(tt.dims, nil), message.NewFixedPointDatatype(2, true, message.OrderLE), nil, r)
			require.NoError(t, err)
			got, err := l.Read()
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestChunkedRoundTripFiltered(t *testing.T) {
	dims := []uint64{1000}
	data := make([]byte, 8*1000)
	for i := range 1000 {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(float64(i)*0.25))
	}
	fp := message.NewFilterPipeline(
		message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{8}},
		message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{6}},
	)

	r, dl := writeChunked(t, data, dims, []uint32{300}, 8, fp)
	l, err := New(dl, message.NewDataspace(dims, nil), message.NewFloatDatatype(8, message.OrderLE), fp, r)
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSingleChunkFiltered(t *testing.T) {
	raw := make([]byte, 4*16)
	for i := range 16 {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(i))
	}
	fp := message.NewFilterPipeline(message.FilterInfo{ID: message.FilterDeflate})
	pipeline, err := filter.NewPipeline(fp)
	require.NoError(t, err)
	stored, mask, err := pipeline.Encode(raw)
	require.NoError(t, err)
	assert.Zero(t, mask)

	f := &memFile{}
	_, err = f.WriteAt(stored, 32)
	require.NoError(t, err)

	dl := message.NewChunkedLayout([]uint32{16}, 4, message.ChunkIndexSingleChunk)
	dl.ChunkFlags = message.ChunkFlagSingleFiltered
	dl.FilteredChunkSize = uint64(len(stored))
	dl.ChunkIndexAddr = 32

	l, err := New(dl, message.NewDataspace([]uint64{16}, nil), message.NewFixedPointDatatype(4, false, message.OrderLE), fp,
		binpkg.NewReader(f, binpkg.DefaultConfig()))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestImplicitChunks(t *testing.T) {
	// 3x3 bytes in 2x2 chunks, stored padded and back to back.
	f := &memFile{}
	_, err := f.WriteAt([]byte{1, 2, 4, 5, 3, 0, 6, 0, 7, 8, 0, 0, 9, 0, 0, 0}, 16)
	require.NoError(t, err)

	dl := message.NewChunkedLayout([]uint32{2, 2}, 1, message.ChunkIndexImplicit)
	dl.ChunkIndexAddr = 16
	l, err := New(dl, message.NewDataspace([]uint64{3, 3}, nil), message.NewFixedPointDatatype(1, false, message.OrderLE), nil,
		binpkg.NewReader(f, binpkg.DefaultConfig()))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestPagedFixedArray(t *testing.T) {
	// Eight one-byte chunks in pages of two; page 1 was never written.
	f := &memFile{}
	for i := range 8 {
		_, err := f.WriteAt([]byte{byte(i + 1)}, int64(512+i))
		require.NoError(t, err)
	}

	var db block
	db.sig("FADB", clientChunk)
	db.uint(256, 8)
	db = append(db, 0b10110000)
	db.uint(0, 4)
	for p := range 4 {
		for i := range 2 {
			db.uint(uint64(512+2*p+i), 8)
		}
		db.uint(0, 4)
	}
	_, err := f.WriteAt(db, 300)
	require.NoError(t, err)

	var hdr block
	hdr.sig("FAHD", clientChunk)
	hdr = append(hdr, 8, 1)
	hdr.uint(8, 8)
	hdr.uint(300, 8)
	_, err = f.WriteAt(hdr, 256)
	require.NoError(t, err)

	dl := message.NewChunkedLayout([]uint32{1}, 1, message.ChunkIndexFixedArray)
	dl.ChunkIndexAddr = 256
	l, err := New(dl, message.NewDataspace([]uint64{8}, nil), message.NewFixedPointDatatype(1, false, message.OrderLE), nil,
		binpkg.NewReader(f, binpkg.DefaultConfig()))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 0, 5, 6, 7, 8}, got)

	f2, ok := l.(Filler)
	require.True(t, ok)
	f2.SetFill([]byte{0xEE})
	got, err = l.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0xEE, 0xEE, 5, 6, 7, 8}, got)
}

func TestSplitRejectsRankMismatch(t *testing.T) {
	cw := NewChunkWriter(nil, []uint32{2, 2}, 1, nil, nil)
	_, err := cw.Split([]byte{1}, []uint64{1})
	assert.Error(t, err)
}

func TestSizeWidth(t *testing.T) {
	assert.Equal(t, 2, NewChunkWriter(nil, []uint32{16}, 4, nil, nil).sizeWidth())
	assert.Equal(t, 3, NewChunkWriter(nil, []uint32{300}, 8, nil, nil).sizeWidth())
}
