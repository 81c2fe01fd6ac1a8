package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/btree"
)

// Client IDs of array indexes.
const (
	clientChunk         = 0
	clientFilteredChunk = 1
)

func expect(r *binary.Reader, sig string) error {
	b, err := r.ReadBytes(len(sig))
	if err != nil {
		return fmt.Errorf("reading %s signature: %w", sig, err)
	}
	if string(b) != sig {
		return fmt.Errorf("bad signature %q, want %q", b, sig)
	}
	return nil
}

// elementReader decodes one chunk entry of a fixed or extensible array.
type elementReader struct {
	client    uint8
	size      int
	sizeWidth int
}

func newElementReader(r *binary.Reader, client uint8, size int) (*elementReader, error) {
	e := &elementReader{client: client, size: size}
	switch client {
	case clientChunk:
		if size != r.OffsetSize() {
			return nil, fmt.Errorf("chunk entry size %d", size)
		}
	case clientFilteredChunk:
		e.sizeWidth = size - r.OffsetSize() - 4
		if e.sizeWidth < 1 || e.sizeWidth > 8 {
			return nil, fmt.Errorf("filtered chunk entry size %d", size)
		}
	default:
		return nil, fmt.Errorf("unknown array client %d", client)
	}
	return e, nil
}

func (e *elementReader) read(r *binary.Reader) (btree.Chunk, error) {
	var ch btree.Chunk
	var err error
	if ch.Address, err = r.ReadOffset(); err != nil {
		return ch, err
	}
	if e.client == clientFilteredChunk {
		size, err := r.ReadUintN(e.sizeWidth)
		if err != nil {
			return ch, err
		}
		ch.Size = uint32(size)
		if ch.FilterMask, err = r.ReadUint32(); err != nil {
			return ch, err
		}
	}
	return ch, nil
}

// readElements reads n entries from r, numbering them from first, and
// keeps the allocated ones.
func (e *elementReader) readElements(r *binary.Reader, g *grid, first, n uint64, out []btree.Chunk) ([]btree.Chunk, error) {
	for i := range n {
		ch, err := e.read(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", first+i, err)
		}
		if ch.Address == 0 || r.IsUndefinedOffset(ch.Address) {
			continue
		}
		ch.Offset = g.origin(first + i)
		out = append(out, ch)
	}
	return out, nil
}

// readFixedArray reads a fixed array index (FAHD header, FADB data
// block). Large arrays split the data block into pages, each followed by
// a checksum, with a bitmap recording which pages were written.
func (c *Chunked) readFixedArray(g *grid) ([]btree.Chunk, error) {
	hr := c.r.At(int64(c.dl.ChunkIndexAddr))
	if err := expect(hr, "FAHD"); err != nil {
		return nil, err
	}
	hdr, err := hr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 0 {
		return nil, fmt.Errorf("fixed array version %d", hdr[0])
	}
	elems, err := newElementReader(c.r, hdr[1], int(hdr[2]))
	if err != nil {
		return nil, err
	}
	pageBits := hdr[3]
	count, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	dblock, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if c.r.IsUndefinedOffset(dblock) {
		return nil, nil
	}

	dr := c.r.At(int64(dblock))
	if err := expect(dr, "FADB"); err != nil {
		return nil, err
	}
	dr.Skip(2 + int64(c.r.OffsetSize()))

	perPage := uint64(1) << pageBits
	if count <= perPage {
		return elems.readElements(dr, g, 0, count, nil)
	}

	pages := (count + perPage - 1) / perPage
	bitmap, err := dr.ReadBytes(int((pages + 7) / 8))
	if err != nil {
		return nil, err
	}
	dr.Skip(4)
	pageSize := int64(perPage)*int64(elems.size) + 4

	var out []btree.Chunk
	for p := range pages {
		if bitmap[p/8]&(0x80>>(p%8)) == 0 {
			continue
		}
		first := p * perPage
		n := min(perPage, count-first)
		pr := c.r.At(dr.Pos() + int64(p)*pageSize)
		if out, err = elems.readElements(pr, g, first, n, out); err != nil {
			return nil, fmt.Errorf("fixed array page %d: %w", p, err)
		}
	}
	return out, nil
}

// readExtensibleArray reads an extensible array index (EAHD header).
// Only entries held directly in the index block are supported, which
// covers arrays that never grew past their initial size.
func (c *Chunked) readExtensibleArray(g *grid) ([]btree.Chunk, error) {
	hr := c.r.At(int64(c.dl.ChunkIndexAddr))
	if err := expect(hr, "EAHD"); err != nil {
		return nil, err
	}
	// version, client, element size, max elements bits, index block
	// elements, data block min elements, secondary block min pointers,
	// data block page bits
	hdr, err := hr.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 0 {
		return nil, fmt.Errorf("extensible array version %d", hdr[0])
	}
	elems, err := newElementReader(c.r, hdr[1], int(hdr[2]))
	if err != nil {
		return nil, err
	}
	inIndex := uint64(hdr[4])

	// Secondary block and data block statistics.
	hr.Skip(4 * int64(c.r.LengthSize()))
	maxIndex, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	hr.Skip(int64(c.r.LengthSize()))
	iblock, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if c.r.IsUndefinedOffset(iblock) || maxIndex == 0 {
		return nil, nil
	}
	if maxIndex > inIndex {
		return nil, fmt.Errorf("extensible array with %d entries outside the index block is not supported", maxIndex-inIndex)
	}

	ir := c.r.At(int64(iblock))
	if err := expect(ir, "EAIB"); err != nil {
		return nil, err
	}
	ir.Skip(2 + int64(c.r.OffsetSize()))
	return elems.readElements(ir, g, 0, maxIndex, nil)
}
