package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// Record types of version 2 trees.
const (
	RecordLinkName      uint8 = 5
	RecordLinkOrder     uint8 = 6
	RecordAttrName      uint8 = 8
	RecordAttrOrder     uint8 = 9
	RecordChunk         uint8 = 10
	RecordFilteredChunk uint8 = 11
)

// Signature, version, type and checksum.
const v2Prefix = 10

type v2Tree struct {
	r        *binary.Reader
	typ      uint8
	recSize  int
	nodeSize uint64

	// Widths of the child record counts in internal nodes.
	nrecWidth  int
	totalWidth []int
}

// walkV2 returns the records of the version 2 tree whose header is at
// addr, in key order. check sees the record type and size before any
// node is read.
func walkV2(r *binary.Reader, addr uint64, check func(typ uint8, recSize int) error) ([][]byte, error) {
	hr := r.At(int64(addr))
	if err := expectSignature(hr, "BTHD"); err != nil {
		return nil, err
	}
	hdr, err := hr.ReadBytes(10)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 0 {
		return nil, fmt.Errorf("%w: header version %d", ErrCorrupt, hdr[0])
	}
	order := r.ByteOrder()
	t := &v2Tree{
		r:        r,
		typ:      hdr[1],
		nodeSize: uint64(order.Uint32(hdr[2:])),
		recSize:  int(order.Uint16(hdr[6:])),
	}
	depth := int(order.Uint16(hdr[8:]))
	hr.Skip(2) // split and merge percentages
	root, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	rootRecords, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	total, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	if err := check(t.typ, t.recSize); err != nil {
		return nil, err
	}
	if total == 0 || r.IsUndefinedOffset(root) {
		return nil, nil
	}
	if err := t.sizeNodes(depth); err != nil {
		return nil, err
	}
	var out [][]byte
	if err := t.readNode(root, int(rootRecords), depth, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sizeNodes derives the pointer field widths, which depend on how many
// records fit in a node at each depth.
func (t *v2Tree) sizeNodes(depth int) error {
	if t.nodeSize <= v2Prefix || t.recSize == 0 {
		return fmt.Errorf("%w: node size %d", ErrCorrupt, t.nodeSize)
	}
	leafMax := (t.nodeSize - v2Prefix) / uint64(t.recSize)
	t.nrecWidth = encSize(leafMax)

	cum := leafMax
	t.totalWidth = make([]int, depth+1)
	for d := 1; d <= depth; d++ {
		ptr := uint64(t.r.OffsetSize() + t.nrecWidth + t.totalWidth[d-1])
		if t.nodeSize < v2Prefix+ptr {
			return fmt.Errorf("%w: node size %d", ErrCorrupt, t.nodeSize)
		}
		max := (t.nodeSize - v2Prefix - ptr) / (uint64(t.recSize) + ptr)
		cum = (max+1)*cum + max
		t.totalWidth[d] = encSize(cum)
	}
	return nil
}

func (t *v2Tree) readNode(addr uint64, nrec, depth int, out *[][]byte) error {
	if uint64(nrec*t.recSize) > t.nodeSize {
		return fmt.Errorf("%w: %d records in node 0x%x", ErrCorrupt, nrec, addr)
	}
	nr := t.r.At(int64(addr))
	sig := "BTLF"
	if depth > 0 {
		sig = "BTIN"
	}
	if err := expectSignature(nr, sig); err != nil {
		return err
	}
	hdr, err := nr.ReadBytes(2)
	if err != nil {
		return err
	}
	if hdr[0] != 0 || hdr[1] != t.typ {
		return fmt.Errorf("%w: node at 0x%x has version %d type %d", ErrCorrupt, addr, hdr[0], hdr[1])
	}

	recs := make([][]byte, nrec)
	for i := range recs {
		if recs[i], err = nr.ReadBytes(t.recSize); err != nil {
			return fmt.Errorf("record %d of node 0x%x: %w", i, addr, err)
		}
	}
	if depth == 0 {
		*out = append(*out, recs...)
		return nil
	}

	// Records of internal nodes sit between the subtrees of their
	// neighbouring children.
	for i := range nrec + 1 {
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		n, err := nr.ReadUintN(t.nrecWidth)
		if err != nil {
			return err
		}
		if depth > 1 {
			nr.Skip(int64(t.totalWidth[depth-1]))
		}
		if err := t.readNode(child, int(n), depth-1, out); err != nil {
			return fmt.Errorf("child %d of node 0x%x: %w", i, addr, err)
		}
		if i < nrec {
			*out = append(*out, recs[i])
		}
	}
	return nil
}

// take splits a little-endian field of n bytes off the front of b.
func take(b []byte, n int) (uint64, []byte) {
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, b[n:]
}

// ReadChunksV2 lists the chunks indexed by the version 2 tree at addr.
// Records store offsets scaled by chunkDims; the returned offsets are in
// element coordinates.
func ReadChunksV2(r *binary.Reader, addr uint64, chunkDims []uint32) ([]Chunk, error) {
	fixed := r.OffsetSize() + 8*len(chunkDims)
	var sizeWidth int
	filtered := false
	recs, err := walkV2(r, addr, func(typ uint8, recSize int) error {
		switch typ {
		case RecordChunk:
			if recSize == fixed {
				return nil
			}
		case RecordFilteredChunk:
			filtered, sizeWidth = true, recSize-fixed-4
			if sizeWidth >= 1 && sizeWidth <= 8 {
				return nil
			}
		default:
			return fmt.Errorf("%w: record type %d does not index chunks", ErrCorrupt, typ)
		}
		return fmt.Errorf("%w: record size %d for rank %d", ErrCorrupt, recSize, len(chunkDims))
	})
	if err != nil {
		return nil, err
	}

	var out []Chunk
	for _, rec := range recs {
		var c Chunk
		c.Address, rec = take(rec, r.OffsetSize())
		if filtered {
			var size, mask uint64
			size, rec = take(rec, sizeWidth)
			mask, rec = take(rec, 4)
			c.Size, c.FilterMask = uint32(size), uint32(mask)
		}
		c.Offset = make([]uint64, len(chunkDims))
		for d, dim := range chunkDims {
			var scaled uint64
			scaled, rec = take(rec, 8)
			c.Offset[d] = scaled * uint64(dim)
		}
		if c.Address != 0 && !r.IsUndefinedOffset(c.Address) {
			out = append(out, c)
		}
	}
	return out, nil
}

// HeapRef is one record of a dense link or attribute index.
type HeapRef struct {
	// ID is the fractal heap ID of the stored message.
	ID []byte

	// Flags are the object header message flags of an attribute.
	Flags uint8

	// Order is the creation order, for trees indexed by it.
	Order uint64
}

// ReadHeapRefsV2 returns the records of the link or attribute index tree
// at addr, in index order: name hash for name indexes, creation order
// otherwise.
func ReadHeapRefsV2(r *binary.Reader, addr uint64) ([]HeapRef, error) {
	var typ uint8
	recs, err := walkV2(r, addr, func(t uint8, recSize int) error {
		typ = t
		var min int
		switch t {
		case RecordLinkName:
			min = 5
		case RecordLinkOrder:
			min = 9
		case RecordAttrName:
			min = 17
		case RecordAttrOrder:
			min = 13
		default:
			return fmt.Errorf("%w: record type %d does not index links or attributes", ErrCorrupt, t)
		}
		if recSize < min {
			return fmt.Errorf("%w: record size %d for type %d", ErrCorrupt, recSize, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]HeapRef, len(recs))
	for i, rec := range recs {
		ref := &out[i]
		switch typ {
		case RecordLinkName:
			ref.ID = rec[4:]
		case RecordLinkOrder:
			ref.Order, ref.ID = take(rec, 8)
		case RecordAttrName, RecordAttrOrder:
			var order uint64
			ref.ID, ref.Flags = rec[:8], rec[8]
			order, _ = take(rec[9:], 4)
			ref.Order = order
		}
	}
	return out, nil
}
