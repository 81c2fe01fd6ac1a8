package object

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

type memFile struct{ buf []byte }

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func writer() *binpkg.Writer { return binpkg.NewWriter(&memFile{}, binpkg.DefaultConfig()) }

func reader(b []byte) *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(b), binpkg.DefaultConfig())
}

func encode(t *testing.T, msgs []message.Message, minChunk int) []byte {
	t.Helper()
	b, err := Encode(writer(), msgs, minChunk)
	require.NoError(t, err)
	return b
}

func body(m message.Serializable) []byte { return message.Encode(m, writer()) }

func TestHeaderAccessors(t *testing.T) {
	h := &Header{
		Version: 2,
		Messages: []message.Message{
			&message.Dataspace{Rank: 2, Dimensions: []uint64{10, 20}},
			&message.Datatype{Class: message.ClassFixedPoint, Size: 4},
			&message.DataLayout{Class: message.LayoutContiguous, Address: 1234},
		},
	}

	require.NotNil(t, h.Dataspace())
	assert.Equal(t, []uint64{10, 20}, h.Dataspace().Dimensions)
	require.NotNil(t, h.Datatype())
	assert.Equal(t, uint32(4), h.Datatype().Size)
	require.NotNil(t, h.DataLayout())
	assert.Equal(t, uint64(1234), h.DataLayout().Address)
	assert.Nil(t, h.FilterPipeline())
	assert.Nil(t, h.FillValue())
	assert.Nil(t, h.GetMessage(message.TypeLink))
}

func TestMalformedMessagesHiddenFromTypedAccess(t *testing.T) {
	bad := &message.Malformed{MsgType: message.TypeDataspace, Data: []byte{0xFF}}
	good := &message.Dataspace{Rank: 1, Dimensions: []uint64{5}}
	h := &Header{Messages: []message.Message{bad, good}}

	assert.Same(t, good, h.Dataspace())
	assert.Len(t, h.GetMessages(message.TypeDataspace), 1)
	assert.Len(t, h.AllMessages(message.TypeDataspace), 2)
	assert.True(t, h.HasMessage(message.TypeDataspace))
	assert.False(t, h.HasMessage(message.TypeSymbolTable))
}

func TestReadKeepsMessagesAfterMalformed(t *testing.T) {
	i32 := message.NewFixedPointDatatype(4, true, message.OrderLE)
	b := encode(t, []message.Message{
		message.NewDataspace([]uint64{3}, nil),
		message.NewScalarAttribute("first", i32, []byte{1, 0, 0, 0}),
		&message.Malformed{MsgType: message.TypeAttribute, Data: []byte{9, 0, 0, 0, 0, 0, 0, 0}},
		message.NewScalarAttribute("last", i32, []byte{2, 0, 0, 0}),
	}, 0)

	h, err := Read(reader(b), 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), h.Version)

	all := h.AllMessages(message.TypeAttribute)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].(*message.Attribute).Name)
	mal, ok := all[1].(*message.Malformed)
	require.True(t, ok)
	assert.Error(t, mal.Err)
	assert.Equal(t, "last", all[2].(*message.Attribute).Name)

	assert.Len(t, h.GetMessages(message.TypeAttribute), 2)
	require.NotNil(t, h.Dataspace())
	assert.Equal(t, []uint64{3}, h.Dataspace().Dimensions)
}

func TestEncodePadsGroupHeader(t *testing.T) {
	b := encode(t, NewEmptyGroupHeader(), MinGroupChunkSize)
	// Prefix, one-byte chunk size, message area, checksum.
	assert.Len(t, b, 4+2+1+MinGroupChunkSize+4)
	assert.Equal(t, uint8(MinGroupChunkSize), b[6])

	h, err := Read(reader(b), 0)
	require.NoError(t, err)
	assert.True(t, h.HasMessage(message.TypeLinkInfo))
	assert.True(t, h.HasMessage(message.TypeGroupInfo))
	assert.False(t, h.HasMessage(message.TypeNIL))
}

func TestEncodeWideChunk(t *testing.T) {
	attr := message.NewScalarAttribute("blob", message.NewFixedPointDatatype(1, false, message.OrderLE), nil)
	attr.Data = make([]byte, 300)
	b := encode(t, []message.Message{attr}, 0)
	assert.Equal(t, uint8(1), b[5]&0x03)

	h, err := Read(reader(b), 0)
	require.NoError(t, err)
	assert.Len(t, h.GetMessages(message.TypeAttribute), 1)
}

type opaque struct{}

func (opaque) Type() message.Type { return message.TypeBogus }

func TestEncodeRejects(t *testing.T) {
	_, err := Encode(writer(), []message.Message{opaque{}}, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	big := message.NewScalarAttribute("big", message.NewFixedPointDatatype(1, false, message.OrderLE), make([]byte, 70000))
	_, err = Encode(writer(), []message.Message{big}, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReadChecksum(t *testing.T) {
	b := encode(t, NewEmptyGroupHeader(), 0)
	b[len(b)-1] ^= 0xFF
	_, err := Read(reader(b), 0)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestReadInvalidHeader(t *testing.T) {
	_, err := Read(reader([]byte{99, 0, 0, 0}), 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Read(reader([]byte("XX")), 0)
	assert.Error(t, err)

	_, err = Read(reader([]byte{'O', 'H', 'D', 'R', 3, 0, 0, 0, 0, 0}), 0)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

// v1 builds a version 1 header at addr whose chunk holds msgs.
func v1(addr int, chunk []byte) []byte {
	b := make([]byte, addr+16)
	b[addr] = 1
	binary.LittleEndian.PutUint32(b[addr+4:], 1)
	binary.LittleEndian.PutUint32(b[addr+8:], uint32(len(chunk)))
	return append(b, chunk...)
}

func v1Message(typ message.Type, data []byte) []byte {
	b := make([]byte, 8, 8+len(data)+7)
	binary.LittleEndian.PutUint16(b, uint16(typ))
	binary.LittleEndian.PutUint16(b[2:], uint16(len(data)))
	b = append(b, data...)
	return append(b, make([]byte, (8-len(data)%8)%8)...)
}

func continuation(off, length uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b, off)
	binary.LittleEndian.PutUint64(b[8:], length)
	return b
}

func TestReadV1WithContinuation(t *testing.T) {
	cont := v1Message(message.TypeDatatype, body(message.NewFloatDatatype(8, message.OrderLE)))

	chunk := v1Message(message.TypeDataspace, body(message.NewDataspace([]uint64{4}, nil)))
	chunk = append(chunk, v1Message(message.TypeNIL, make([]byte, 8))...)
	contAt := 16 + len(chunk) + len(v1Message(0, make([]byte, 16)))
	chunk = append(chunk, v1Message(message.TypeObjectHeaderContinuation, continuation(uint64(contAt), uint64(len(cont))))...)

	file := append(v1(0, chunk), cont...)
	h, err := Read(reader(file), 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), h.Version)
	assert.Equal(t, uint32(1), h.RefCount)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, []uint64{4}, h.Dataspace().Dimensions)
	assert.True(t, h.Datatype().IsFloat())
}

func TestReadV1ContinuationLoop(t *testing.T) {
	// The continuation points back at the header itself.
	chunk := v1Message(message.TypeObjectHeaderContinuation, continuation(0, 24))
	_, err := Read(reader(v1(0, chunk)), 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReadV2Continuation(t *testing.T) {
	// An OCHK block holding one link, after the header.
	link := body(message.NewHardLink("x", 0x99))
	ochk := append([]byte("OCHK"), uint8(message.TypeLink), byte(len(link)), 0, 0)
	ochk = append(ochk, link...)
	ochk = binary.LittleEndian.AppendUint32(ochk, binpkg.Lookup3Checksum(ochk))

	// The header size does not depend on where the continuation points.
	cont := &message.Continuation{Length: uint64(len(ochk))}
	cont.Offset = uint64(len(encode(t, append(NewEmptyGroupHeader(), cont), 0)))
	file := append(encode(t, append(NewEmptyGroupHeader(), cont), 0), ochk...)

	h, err := Read(reader(file), 0)
	require.NoError(t, err)
	links := h.GetMessages(message.TypeLink)
	require.Len(t, links, 1)
	assert.Equal(t, uint64(0x99), links[0].(*message.Link).ObjectAddress)

	file[len(file)-1] ^= 0xFF
	_, err = Read(reader(file), 0)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestNewDatasetHeader(t *testing.T) {
	msgs := NewDatasetHeader(message.NewScalarDataspace(), message.NewFloatDatatype(4, message.OrderLE),
		message.NewContiguousLayout(0x800, 4), nil)
	h, err := Read(reader(encode(t, msgs, 0)), 0)
	require.NoError(t, err)
	require.NotNil(t, h.FillValue())
	assert.Nil(t, h.FillValue().Fill())
	assert.Nil(t, h.FilterPipeline())
	assert.Equal(t, uint64(0x800), h.DataLayout().Address)
}
