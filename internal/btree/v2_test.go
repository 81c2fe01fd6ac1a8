package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/binary"
)

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(f.data) {
		f.data = append(f.data, make([]byte, end-len(f.data))...)
	}
	return copy(f.data[off:], p), nil
}

func (f *file) alloc(size int64) uint64 {
	addr := uint64(len(f.data))
	f.data = append(f.data, make([]byte, size)...)
	return addr
}

func TestLinkNameIndexRoundTrip(t *testing.T) {
	f := newFile()
	w := binary.NewWriter(f, binary.DefaultConfig())

	names := []string{"temperature", "pressure", "a", "zeta", "group"}
	refs := make([]NameRef, len(names))
	for i, n := range names {
		refs[i] = NameRef{Name: n, ID: []byte{0, byte(i + 1), 0, 0, 0, byte(len(n)), 0}}
	}
	addr, err := WriteLinkNameIndex(w, f.alloc, refs)
	require.NoError(t, err)

	got, err := ReadHeapRefsV2(f.reader(), addr)
	require.NoError(t, err)
	require.Len(t, got, len(names))

	var prev uint32
	seen := map[string]bool{}
	for _, ref := range got {
		require.Len(t, ref.ID, 7)
		name := names[ref.ID[1]-1]
		hash := binary.Lookup3Checksum([]byte(name))
		assert.GreaterOrEqual(t, hash, prev, "records are in hash order")
		prev = hash
		seen[name] = true
	}
	assert.Len(t, seen, len(names))
}

func TestLinkNameIndexEmpty(t *testing.T) {
	f := newFile()
	_, err := WriteLinkNameIndex(binary.NewWriter(f, binary.DefaultConfig()), f.alloc, nil)
	assert.Error(t, err)
}

func TestReadHeapRefsV2(t *testing.T) {
	f := newFile()

	attrs := (&enc{}).str("BTLF").u(0, 1).u(uint64(RecordAttrName), 1)
	attrs.u(0x0102, 8).u(1, 1).u(4, 4).u(0xAAAA, 4)
	attrs.u(0x0304, 8).u(0, 1).u(2, 4).u(0xBBBB, 4)
	attrLeaf := f.put(attrs)
	attrHdr := f.put(v2Header(RecordAttrName, 512, 17, 0, attrLeaf, 2, 2))

	got, err := ReadHeapRefsV2(f.reader(), attrHdr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{2, 1, 0, 0, 0, 0, 0, 0}, got[0].ID)
	assert.Equal(t, uint8(1), got[0].Flags)
	assert.Equal(t, uint64(4), got[0].Order)
	assert.Equal(t, uint64(2), got[1].Order)

	links := (&enc{}).str("BTLF").u(0, 1).u(uint64(RecordLinkOrder), 1)
	links.u(7, 8).u(0x0605040302010000, 7)
	linkLeaf := f.put(links)
	linkHdr := f.put(v2Header(RecordLinkOrder, 512, 15, 0, linkLeaf, 1, 1))

	got, err = ReadHeapRefsV2(f.reader(), linkHdr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].Order)
	assert.Len(t, got[0].ID, 7)

	chunks := f.put(v2Header(RecordChunk, 512, 24, 0, undef, 0, 0))
	_, err = ReadHeapRefsV2(f.reader(), chunks)
	assert.ErrorIs(t, err, ErrCorrupt)

	short := f.put(v2Header(RecordAttrName, 512, 9, 0, undef, 0, 0))
	_, err = ReadHeapRefsV2(f.reader(), short)
	assert.ErrorIs(t, err, ErrCorrupt)
}
