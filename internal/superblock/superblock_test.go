package superblock

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

func encode(t *testing.T, sb *Superblock, at int) []byte {
	t.Helper()
	var buf memFile
	w := binpkg.NewWriter(&buf, sb.ReaderConfig()).At(int64(at))
	require.NoError(t, sb.Write(w))
	return buf
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []uint8{4, 8} {
		sb := New()
		sb.OffsetSize, sb.LengthSize = size, size
		sb.RootGroupAddress = 0x30
		sb.EOFAddress = 0x1234

		raw := encode(t, sb, 0)
		assert.Len(t, raw, sb.Size())

		got, err := Read(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, uint8(3), got.Version)
		assert.Equal(t, size, got.OffsetSize)
		assert.Equal(t, uint64(0x30), got.RootGroupAddress)
		assert.Equal(t, uint64(0x1234), got.EOFAddress)
		assert.Equal(t, binpkg.Undefined(int(size)), got.ExtensionAddress)
		assert.Zero(t, got.Offset)
	}
}

func TestReadAtLaterOffset(t *testing.T) {
	sb := New()
	sb.RootGroupAddress = 0x300
	raw := encode(t, sb, 512)

	got, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(512), got.Offset)
	assert.Equal(t, uint64(0x300), got.RootGroupAddress)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 4096)))
	assert.ErrorIs(t, err, ErrNotHDF5)

	_, err = Read(bytes.NewReader([]byte("short")))
	assert.ErrorIs(t, err, ErrNotHDF5)

	bad := make([]byte, 64)
	copy(bad, Signature)
	bad[8] = 9
	_, err = Read(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	raw := encode(t, New(), 0)
	raw[20] ^= 0xff
	_, err = Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidSuperblock)

	raw = encode(t, New(), 0)
	raw[9] = 3
	_, err = Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidSuperblock)
}

// v0 builds a version 0 or 1 superblock with 8-byte fields whose root
// entry caches the symbol table addresses.
func v0(version uint8) []byte {
	b := append([]byte(nil), Signature...)
	b = append(b, version, 0, 0, 0, 0, 8, 8, 0)
	b = binary.LittleEndian.AppendUint16(b, 4)
	b = binary.LittleEndian.AppendUint16(b, 16)
	b = binary.LittleEndian.AppendUint32(b, 0)
	if version == 1 {
		b = binary.LittleEndian.AppendUint16(b, 32)
		b = append(b, 0, 0)
	}
	for _, addr := range []uint64{0, ^uint64(0), 0x4000, ^uint64(0)} {
		b = binary.LittleEndian.AppendUint64(b, addr)
	}
	b = binary.LittleEndian.AppendUint64(b, 0)    // name offset
	b = binary.LittleEndian.AppendUint64(b, 0x60) // header
	b = binary.LittleEndian.AppendUint32(b, 1)    // cache type
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint64(b, 0x88) // b-tree
	b = binary.LittleEndian.AppendUint64(b, 0x2a8)
	return b
}

func TestReadV0AndV1(t *testing.T) {
	for _, version := range []uint8{0, 1} {
		sb, err := Read(bytes.NewReader(v0(version)))
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, version, sb.Version)
		assert.Equal(t, uint8(8), sb.OffsetSize)
		assert.Equal(t, uint16(4), sb.GroupLeafNodeK)
		assert.Equal(t, uint16(16), sb.GroupInternalNodeK)
		assert.Equal(t, uint64(0x4000), sb.EOFAddress)
		assert.Equal(t, uint64(0x60), sb.RootGroupAddress)
		assert.Equal(t, uint64(0x88), sb.RootGroupBTreeAddress)
		assert.Equal(t, uint64(0x2a8), sb.RootGroupLocalHeapAddress)
		if version == 1 {
			assert.Equal(t, uint16(32), sb.IndexedStorageK)
		}
	}
}

func TestReaderConfig(t *testing.T) {
	sb := &Superblock{OffsetSize: 4, LengthSize: 8}
	cfg := sb.ReaderConfig()
	assert.Equal(t, 4, cfg.OffsetSize)
	assert.Equal(t, 8, cfg.LengthSize)
	assert.Equal(t, binary.LittleEndian, cfg.ByteOrder)
}
