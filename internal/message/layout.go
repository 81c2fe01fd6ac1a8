package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout class %d", uint8(c))
}

// ChunkIndexType identifies the chunk index of a version 4 layout.
// Earlier versions always index chunks with a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexNone            ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

const (
	ChunkFlagDontFilterPartialEdge uint8 = 0x01
	ChunkFlagSingleFiltered        uint8 = 0x02
)

// indexParams is the size of the creation parameters stored for each
// version 4 chunk index, other than a filtered single chunk.
var indexParams = map[ChunkIndexType]int{
	ChunkIndexSingleChunk:     0,
	ChunkIndexImplicit:        0,
	ChunkIndexFixedArray:      1,
	ChunkIndexExtensibleArray: 5,
	ChunkIndexBTreeV2:         6,
}

// Defaults written when IndexParams is empty, as the HDF5 library
// would choose them.
var defaultIndexParams = map[ChunkIndexType][]byte{
	ChunkIndexFixedArray:      {10},
	ChunkIndexExtensibleArray: {32, 4, 4, 16, 10},
	ChunkIndexBTreeV2:         {0x00, 0x08, 0, 0, 100, 40},
}

// DataLayout says where the raw data of a dataset lives (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	// Contiguous storage. Versions 1 and 2 leave Size zero; it follows
	// from the dataspace and datatype.
	Address uint64
	Size    uint64

	// ChunkDims has one entry per dataspace dimension plus a trailing
	// element size.
	ChunkDims          []uint32
	ChunkIndexAddr     uint64
	ChunkIndexType     ChunkIndexType
	ChunkFlags         uint8
	DimensionSizeBytes uint8
	IndexParams        []byte

	// Filtered single chunk only.
	FilteredChunkSize uint64
	FilterMask        uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func (m *DataLayout) IsCompact() bool    { return m.Class == LayoutCompact }
func (m *DataLayout) IsContiguous() bool { return m.Class == LayoutContiguous }
func (m *DataLayout) IsChunked() bool    { return m.Class == LayoutChunked }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	d := newDecoder(data, r)
	dl := &DataLayout{Version: d.u8()}

	var err error
	switch dl.Version {
	case 1, 2:
		decodeLayoutV1(d, dl)
	case 3, 4:
		err = decodeLayoutV3(d, dl)
	default:
		err = fmt.Errorf("data layout version %d", dl.Version)
	}
	if err == nil {
		err = d.err
	}
	if err != nil {
		return nil, fmt.Errorf("data layout: %w", err)
	}
	return dl, nil
}

// decodeLayoutV1 reads the pre-1.8 form: rank+1, class, five reserved
// bytes, an address unless compact, then the dimensions.
func decodeLayoutV1(d *decoder, dl *DataLayout) {
	rank := int(d.u8())
	dl.Class = LayoutClass(d.u8())
	d.skip(5)
	if dl.Class != LayoutCompact {
		dl.Address = d.offset()
	}
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = d.u32()
	}

	switch dl.Class {
	case LayoutCompact:
		dl.CompactData = append([]byte(nil), d.bytes(int(d.u32()))...)
	case LayoutChunked:
		// The trailing dimension is the element size; some writers store
		// it again after the dimensions.
		dl.ChunkIndexAddr, dl.Address = dl.Address, 0
		if d.remaining() >= 4 {
			dims = append(dims, d.u32())
		}
		dl.ChunkDims = dims
	}
}

func decodeLayoutV3(d *decoder, dl *DataLayout) error {
	dl.Class = LayoutClass(d.u8())

	switch dl.Class {
	case LayoutCompact:
		dl.CompactData = append([]byte(nil), d.bytes(int(d.u16()))...)
	case LayoutContiguous:
		dl.Address = d.offset()
		dl.Size = d.length()
	case LayoutChunked:
		if dl.Version == 4 {
			return decodeChunkedV4(d, dl)
		}
		rank := int(d.u8())
		dl.ChunkIndexAddr = d.offset()
		dl.ChunkDims = make([]uint32, rank)
		for i := range dl.ChunkDims {
			dl.ChunkDims[i] = d.u32()
		}
	case LayoutVirtual:
		return fmt.Errorf("virtual datasets are not supported")
	default:
		return fmt.Errorf("unknown layout class %d", dl.Class)
	}
	return nil
}

func decodeChunkedV4(d *decoder, dl *DataLayout) error {
	dl.ChunkFlags = d.u8()
	rank := int(d.u8())
	dl.DimensionSizeBytes = d.u8()
	width := int(dl.DimensionSizeBytes)
	if d.err == nil && (width < 1 || width > 8) {
		return fmt.Errorf("chunk dimension width %d", width)
	}
	dl.ChunkDims = make([]uint32, rank)
	for i := range dl.ChunkDims {
		dl.ChunkDims[i] = uint32(d.uint(width))
	}

	dl.ChunkIndexType = ChunkIndexType(d.u8())
	n, ok := indexParams[dl.ChunkIndexType]
	if !ok && d.err == nil {
		return fmt.Errorf("unknown chunk index type %d", dl.ChunkIndexType)
	}
	if dl.ChunkIndexType == ChunkIndexSingleChunk && dl.ChunkFlags&ChunkFlagSingleFiltered != 0 {
		dl.FilteredChunkSize = d.length()
		dl.FilterMask = d.u32()
	}
	if n > 0 {
		dl.IndexParams = append([]byte(nil), d.bytes(n)...)
	}
	dl.ChunkIndexAddr = d.offset()
	return nil
}

// encode writes version 4 for chunked storage and version 3 otherwise.
func (m *DataLayout) encode(e *encoder) {
	if m.Class != LayoutChunked {
		e.u8(3)
		e.u8(uint8(m.Class))
		if m.Class == LayoutCompact {
			e.u16(uint16(len(m.CompactData)))
			e.bytes(m.CompactData)
		} else {
			e.offset(m.Address)
			e.length(m.Size)
		}
		return
	}

	width := int(m.DimensionSizeBytes)
	if width == 0 {
		width = 4
	}
	e.u8(4)
	e.u8(uint8(LayoutChunked))
	e.u8(m.ChunkFlags)
	e.u8(uint8(len(m.ChunkDims)))
	e.u8(uint8(width))
	for _, d := range m.ChunkDims {
		e.uint(uint64(d), width)
	}
	e.u8(uint8(m.ChunkIndexType))
	if m.ChunkIndexType == ChunkIndexSingleChunk && m.ChunkFlags&ChunkFlagSingleFiltered != 0 {
		e.length(m.FilteredChunkSize)
		e.u32(m.FilterMask)
	}
	params := m.IndexParams
	if len(params) != indexParams[m.ChunkIndexType] {
		params = defaultIndexParams[m.ChunkIndexType]
	}
	e.bytes(params)
	e.offset(m.ChunkIndexAddr)
}

func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

// NewChunkedLayout returns a version 4 chunked layout. chunkDims has one
// entry per dataspace dimension; the element size is appended. The
// caller sets ChunkIndexAddr once the index is written.
func NewChunkedLayout(chunkDims []uint32, elementSize uint32, index ChunkIndexType) *DataLayout {
	dims := append(append(make([]uint32, 0, len(chunkDims)+1), chunkDims...), elementSize)
	widest := uint32(0)
	for _, d := range dims {
		widest = max(widest, d)
	}
	width := uint8(1)
	switch {
	case widest > 0xFFFF:
		width = 4
	case widest > 0xFF:
		width = 2
	}
	return &DataLayout{
		Version:            4,
		Class:              LayoutChunked,
		ChunkDims:          dims,
		ChunkIndexType:     index,
		DimensionSizeBytes: width,
	}
}
