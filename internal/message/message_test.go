package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/binary"
)

type memBuf struct {
	buf []byte
}

func (m *memBuf) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func testReader() *binary.Reader {
	return binary.NewReader(nil, binary.DefaultConfig())
}

// roundTrip serializes m and parses it back as message type typ.
func roundTrip(t *testing.T, m Serializable, typ Type) Message {
	t.Helper()
	b := &memBuf{}
	w := binary.NewWriter(b, binary.DefaultConfig())
	require.NoError(t, Serialize(m, w))
	require.Len(t, b.buf, SerializedSize(m, w))

	out, err := Parse(typ, b.buf, 0, testReader())
	require.NoError(t, err)
	return out
}

func TestDataspaceRoundTrip(t *testing.T) {
	ds := roundTrip(t, NewDataspace([]uint64{3, 4}, nil), TypeDataspace).(*Dataspace)
	assert.Equal(t, []uint64{3, 4}, ds.Dimensions)
	assert.Equal(t, uint64(12), ds.NumElements())

	scalar := roundTrip(t, NewScalarDataspace(), TypeDataspace).(*Dataspace)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, uint64(1), scalar.NumElements())
}

func TestDatatypeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		dt   *Datatype
	}{
		{"int32", NewFixedPointDatatype(4, true, OrderLE)},
		{"uint16 BE", NewFixedPointDatatype(2, false, OrderBE)},
		{"float64", NewFloatDatatype(8, OrderLE)},
		{"string", NewStringDatatype(12, PadNullPad, CharsetUTF8)},
		{"bitfield", NewBitfieldDatatype(1, OrderLE)},
		{"vlen string", NewVarLenStringDatatype(CharsetUTF8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.dt, TypeDatatype).(*Datatype)
			assert.Equal(t, tt.dt.Class, got.Class)
			assert.Equal(t, tt.dt.Size, got.Size)
			assert.Equal(t, tt.dt.Signed, got.Signed)
			assert.Equal(t, tt.dt.ByteOrder, got.ByteOrder)
			assert.Equal(t, tt.dt.IsVarLenString, got.IsVarLenString)
		})
	}
}

func TestEnumRoundTrip(t *testing.T) {
	base := NewFixedPointDatatype(2, true, OrderLE)
	enum := NewEnumDatatype(base, []EnumValue{
		{Name: "OFF", Value: []byte{0, 0}},
		{Name: "ON", Value: []byte{1, 0}},
	})
	got := roundTrip(t, enum, TypeDatatype).(*Datatype)
	assert.Equal(t, ClassEnum, got.Class)
	require.NotNil(t, got.BaseType)
	assert.True(t, got.Signed)
	assert.Equal(t, uint32(2), got.BaseType.Size)
	assert.Equal(t, enum.EnumValues, got.EnumValues)
}

func TestCompoundRoundTrip(t *testing.T) {
	dt := NewCompoundDatatype(20, []CompoundMember{
		{Name: "id", ByteOffset: 0, Type: NewFixedPointDatatype(4, false, OrderLE)},
		{Name: "pos", ByteOffset: 4, Type: NewArrayDatatype([]uint32{2}, NewFloatDatatype(8, OrderLE))},
	})
	got := roundTrip(t, dt, TypeDatatype).(*Datatype)
	require.Len(t, got.Members, 2)
	assert.Equal(t, "pos", got.Members[1].Name)
	assert.Equal(t, uint32(4), got.Members[1].ByteOffset)
	assert.Equal(t, []uint32{2}, got.Members[1].Type.ArrayDims)
	assert.Equal(t, uint32(16), got.Members[1].Type.Size)
	assert.Equal(t, ClassFloatPoint, got.Members[1].Type.BaseType.Class)
}

func TestCompoundV1(t *testing.T) {
	// One member "x" at offset 8 with a legacy 3-element array.
	data := []byte{0x16, 1, 0, 0, 32, 0, 0, 0}
	data = append(data, 'x', 0, 0, 0, 0, 0, 0, 0)
	data = append(data, 8, 0, 0, 0, 1, 0, 0, 0)
	data = append(data, make([]byte, 8)...)
	data = append(data, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	data = append(data, 0x11, 0x20, 0x3f, 0, 8, 0, 0, 0, 0, 0, 64, 0, 52, 11, 0, 52, 0xff, 3, 0, 0)

	dt, err := parseDatatype(data, testReader())
	require.NoError(t, err)
	require.Len(t, dt.Members, 1)
	m := dt.Members[0]
	assert.Equal(t, "x", m.Name)
	assert.Equal(t, uint32(8), m.ByteOffset)
	assert.Equal(t, ClassArray, m.Type.Class)
	assert.Equal(t, []uint32{3}, m.Type.ArrayDims)
	assert.Equal(t, uint32(24), m.Type.Size)
}

func TestArrayV2(t *testing.T) {
	// Version 2 arrays carry reserved bytes and a permutation.
	data := []byte{0x2a, 0, 0, 0, 6, 0, 0, 0, 1, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0}
	data = append(data, 0x10, 0, 0, 0, 2, 0, 0, 0, 0, 0, 16, 0)

	dt, err := parseDatatype(data, testReader())
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, dt.ArrayDims)
	require.NotNil(t, dt.BaseType)
	assert.Equal(t, uint32(2), dt.BaseType.Size)
}

func TestDatatypeErrors(t *testing.T) {
	_, err := parseDatatype([]byte{0x10, 0, 0}, testReader())
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = parseDatatype([]byte{0x1f, 0, 0, 0, 1, 0, 0, 0}, testReader())
	assert.Error(t, err)

	// Array of array of ... deeper than allowed.
	var nested []byte
	for range maxTypeDepth + 2 {
		nested = append(nested, 0x3a, 0, 0, 0, 1, 0, 0, 0, 1, 1, 0, 0, 0)
	}
	_, err = parseDatatype(nested, testReader())
	assert.Error(t, err)
}

func TestMemberOffsetSize(t *testing.T) {
	assert.Equal(t, 1, memberOffsetSize(0))
	assert.Equal(t, 1, memberOffsetSize(255))
	assert.Equal(t, 2, memberOffsetSize(256))
	assert.Equal(t, 3, memberOffsetSize(1<<16))
	assert.Equal(t, 4, memberOffsetSize(1<<24))
}

func TestLayoutRoundTrip(t *testing.T) {
	contig := roundTrip(t, NewContiguousLayout(0x1000, 0x80), TypeDataLayout).(*DataLayout)
	assert.True(t, contig.IsContiguous())
	assert.Equal(t, uint64(0x1000), contig.Address)
	assert.Equal(t, uint64(0x80), contig.Size)

	compact := roundTrip(t, NewCompactLayout([]byte{1, 2, 3}), TypeDataLayout).(*DataLayout)
	assert.Equal(t, []byte{1, 2, 3}, compact.CompactData)

	fa := NewChunkedLayout([]uint32{300, 2}, 8, ChunkIndexFixedArray)
	fa.ChunkIndexAddr = 0x2222
	got := roundTrip(t, fa, TypeDataLayout).(*DataLayout)
	assert.Equal(t, ChunkIndexFixedArray, got.ChunkIndexType)
	assert.Equal(t, []uint32{300, 2, 8}, got.ChunkDims)
	assert.Equal(t, uint64(0x2222), got.ChunkIndexAddr)

	single := NewChunkedLayout([]uint32{10}, 4, ChunkIndexSingleChunk)
	single.ChunkFlags = ChunkFlagSingleFiltered
	single.FilteredChunkSize = 17
	single.FilterMask = 2
	single.ChunkIndexAddr = 0x400
	got = roundTrip(t, single, TypeDataLayout).(*DataLayout)
	assert.Equal(t, uint64(17), got.FilteredChunkSize)
	assert.Equal(t, uint32(2), got.FilterMask)
	assert.Equal(t, uint64(0x400), got.ChunkIndexAddr)
}

func TestLayoutV3Chunked(t *testing.T) {
	// version 3, chunked, rank+1 = 3, B-tree address, 4-byte sizes.
	data := []byte{3, 2, 3}
	data = append(data, 0x00, 0x10, 0, 0, 0, 0, 0, 0)
	data = append(data, 4, 0, 0, 0, 5, 0, 0, 0, 8, 0, 0, 0)

	l, err := parseDataLayout(data, testReader())
	require.NoError(t, err)
	assert.True(t, l.IsChunked())
	assert.Equal(t, uint64(0x1000), l.ChunkIndexAddr)
	assert.Equal(t, []uint32{4, 5, 8}, l.ChunkDims)
}

func TestFilterPipelineRoundTrip(t *testing.T) {
	fp := NewFilterPipeline(
		FilterInfo{ID: FilterShuffle, ClientData: []uint32{4}},
		FilterInfo{ID: FilterDeflate, ClientData: []uint32{6}},
	)
	got := roundTrip(t, fp, TypeFilterPipeline).(*FilterPipeline)
	require.Len(t, got.Filters, 2)
	assert.Equal(t, FilterShuffle, got.Filters[0].ID)
	assert.Equal(t, []uint32{6}, got.Filters[1].ClientData)
}

func TestLinkRoundTrip(t *testing.T) {
	hard := roundTrip(t, NewHardLink("Dataset1", 0x800), TypeLink).(*Link)
	assert.True(t, hard.IsHard())
	assert.Equal(t, "Dataset1", hard.Name)
	assert.Equal(t, uint64(0x800), hard.ObjectAddress)

	soft := roundTrip(t, NewSoftLink("alias", "/Group1/Dataset1"), TypeLink).(*Link)
	assert.True(t, soft.IsSoft())
	assert.Equal(t, "/Group1/Dataset1", soft.SoftLinkValue)

	ext := roundTrip(t, NewExternalLink("ext", "other.h5", "/x"), TypeLink).(*Link)
	assert.True(t, ext.IsExternal())
	assert.Equal(t, "other.h5", ext.ExternalFile)
	assert.Equal(t, "/x", ext.ExternalPath)
}

func TestAttributeRoundTrip(t *testing.T) {
	attr := NewAttribute("scale", NewFloatDatatype(8, OrderLE), NewDataspace([]uint64{2}, nil), make([]byte, 16))
	got := roundTrip(t, attr, TypeAttribute).(*Attribute)
	assert.Equal(t, "scale", got.Name)
	assert.Equal(t, ClassFloatPoint, got.Datatype.Class)
	assert.Equal(t, []uint64{2}, got.Dataspace.Dimensions)
	assert.Len(t, got.Data, 16)
}

func TestLinkInfo(t *testing.T) {
	li := roundTrip(t, NewLinkInfo(), TypeLinkInfo).(*LinkInfo)
	assert.False(t, li.IsDense())

	data := []byte{0, 0}
	data = append(data, 0x00, 0x20, 0, 0, 0, 0, 0, 0)
	data = append(data, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	msg, err := Parse(TypeLinkInfo, data, 0, testReader())
	require.NoError(t, err)
	assert.True(t, msg.(*LinkInfo).IsDense())
}

func TestAttributeInfo(t *testing.T) {
	undefined := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	compactData := append(append([]byte{0, 0}, undefined...), undefined...)
	msg, err := Parse(TypeAttributeInfo, compactData, 0, testReader())
	require.NoError(t, err)
	assert.False(t, msg.(*AttributeInfo).IsDense())

	// Creation order tracked (2-byte max index) and a real fractal heap.
	dense := []byte{0, 1, 5, 0, 0x00, 0x30, 0, 0, 0, 0, 0, 0}
	dense = append(dense, undefined...)
	msg, err = Parse(TypeAttributeInfo, dense, 0, testReader())
	require.NoError(t, err)
	ai := msg.(*AttributeInfo)
	assert.True(t, ai.IsDense())
	assert.Equal(t, uint16(5), ai.MaxCreationIndex)

	_, err = Parse(TypeAttributeInfo, []byte{0, 0, 1}, 0, testReader())
	assert.Error(t, err)
}

func TestParseOrMalformed(t *testing.T) {
	msg := ParseOrMalformed(TypeDataspace, []byte{0xFF}, 0, testReader())
	mal, ok := msg.(*Malformed)
	require.True(t, ok)
	assert.Equal(t, TypeDataspace, mal.Type())
	assert.Error(t, mal.Err)

	unknown := ParseOrMalformed(Type(0x0099), []byte{1, 2}, 0, testReader())
	assert.Equal(t, Type(0x0099), unknown.Type())
	assert.Equal(t, []byte{1, 2}, unknown.(*Unknown).Data())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "dataspace", TypeDataspace.String())
	assert.Equal(t, "filter pipeline", TypeFilterPipeline.String())
	assert.Equal(t, "type 0x0042", Type(0x42).String())
}

func TestFillValue(t *testing.T) {
	fv := roundTrip(t, NewFillValue([]byte{0xff, 0xff}), TypeFillValue).(*FillValue)
	assert.Equal(t, []byte{0xff, 0xff}, fv.Fill())
	assert.Equal(t, AllocLate, fv.SpaceAllocTime)

	// Version 2 without a defined value.
	msg, err := Parse(TypeFillValue, []byte{2, 1, 0, 0}, 0, testReader())
	require.NoError(t, err)
	assert.Nil(t, msg.(*FillValue).Fill())

	// Version 3, undefined.
	msg, err = Parse(TypeFillValue, []byte{3, 0x10}, 0, testReader())
	require.NoError(t, err)
	assert.False(t, msg.(*FillValue).IsDefined)

	_, err = Parse(TypeFillValue, []byte{3, 0x20, 4, 0, 0, 0, 1}, 0, testReader())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestGroupInfo(t *testing.T) {
	gi := &GroupInfo{Flags: 3, MaxCompactLinks: 8, MinDenseLinks: 6, EstNumEntries: 4, EstLinkNameLen: 12}
	got := roundTrip(t, gi, TypeGroupInfo).(*GroupInfo)
	assert.Equal(t, gi, got)
}

func TestLinkLongNameAndCharset(t *testing.T) {
	name := string(make([]byte, 300))
	l := NewHardLink(name, 0x42)
	l.Charset = CharsetUTF8
	got := roundTrip(t, l, TypeLink).(*Link)
	assert.Len(t, got.Name, 300)
	assert.Equal(t, CharsetUTF8, got.Charset)
	assert.Equal(t, uint64(0x42), got.ObjectAddress)

	_, err := Parse(TypeLink, []byte{2, 0}, 0, testReader())
	assert.Error(t, err)
}

func TestAttributeV1(t *testing.T) {
	b := &memBuf{}
	w := binary.NewWriter(b, binary.DefaultConfig())
	require.NoError(t, Serialize(NewFixedPointDatatype(1, false, OrderLE), w))
	dt := b.buf
	b.buf = nil
	require.NoError(t, Serialize(NewScalarDataspace(), w.At(0)))
	ds := b.buf

	// Name, datatype and dataspace each padded to eight bytes.
	data := []byte{1, 0, 3, 0, byte(len(dt)), 0, byte(len(ds)), 0}
	data = append(data, 'i', 'd', 0, 0, 0, 0, 0, 0)
	data = append(data, dt...)
	data = append(data, make([]byte, (8-len(dt)%8)%8)...)
	data = append(data, ds...)
	data = append(data, make([]byte, (8-len(ds)%8)%8)...)
	data = append(data, 7)

	msg, err := Parse(TypeAttribute, data, 0, testReader())
	require.NoError(t, err)
	a := msg.(*Attribute)
	assert.Equal(t, "id", a.Name)
	assert.True(t, a.Dataspace.IsScalar())
	assert.Equal(t, []byte{7}, a.Data)
}

func TestContinuation(t *testing.T) {
	data := []byte{0x00, 0x10, 0, 0, 0, 0, 0, 0, 0x80, 0, 0, 0, 0, 0, 0, 0}
	msg, err := Parse(TypeObjectHeaderContinuation, data, 0, testReader())
	require.NoError(t, err)
	assert.Equal(t, &Continuation{Offset: 0x1000, Length: 0x80}, msg)

	_, err = ParseContinuation(data[:12], testReader())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestSharedMessage(t *testing.T) {
	_, err := Parse(TypeDatatype, []byte{0, 0, 0, 0}, 0x02, testReader())
	assert.Error(t, err)
}
