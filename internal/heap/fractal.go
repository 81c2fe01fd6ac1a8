package heap

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// ErrUnsupported is returned for fractal heap features this package does
// not read: filtered blocks and huge objects.
var ErrUnsupported = errors.New("unsupported fractal heap feature")

// Limits on what one heap may claim, so corrupt tables fail early.
const (
	maxHeapRows   = 64
	maxHeapBlocks = 1 << 20
)

// FractalHeap is a fractal heap ("FRHP"). It stores the messages of
// densely stored links and attributes, addressed by heap IDs.
type FractalHeap struct {
	r    *binary.Reader
	addr uint64

	idLen      int
	width      int
	startBlock uint64
	maxDirect  uint64
	rootAddr   uint64
	rootRows   int

	offWidth int // bytes of an object's heap offset in a managed ID
	lenWidth int // bytes of its length

	blocks []directBlock // by heap offset, loaded on first use
}

type directBlock struct {
	offset uint64
	size   uint64
	addr   uint64
}

// log2 is floor(log2(v)) for v > 0.
func log2(v uint64) int { return bits.Len64(v) - 1 }

// ReadFractalHeap reads the heap header at addr.
func ReadFractalHeap(r *binary.Reader, addr uint64) (*FractalHeap, error) {
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(14)
	if err != nil {
		return nil, fmt.Errorf("fractal heap at 0x%x: %w", addr, err)
	}
	if string(head[:4]) != "FRHP" {
		return nil, fmt.Errorf("bad fractal heap signature %q at 0x%x", head[:4], addr)
	}
	if head[4] != 0 {
		return nil, fmt.Errorf("unsupported fractal heap version %d", head[4])
	}
	order := r.ByteOrder()
	h := &FractalHeap{r: r, addr: addr, idLen: int(order.Uint16(head[5:]))}
	filterLen := order.Uint16(head[7:])
	maxManaged := uint64(order.Uint32(head[10:]))

	// Huge object bookkeeping, free space and object counts.
	hr.Skip(int64(r.OffsetSize()*2 + r.LengthSize()*10))

	width, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	if h.startBlock, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.maxDirect, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	heapBits, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	hr.Skip(2) // starting rows of the root indirect block
	if h.rootAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	rootRows, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}

	switch {
	case filterLen > 0:
		return nil, fmt.Errorf("%w: filtered heap at 0x%x", ErrUnsupported, addr)
	case width == 0, h.startBlock == 0, h.maxDirect < h.startBlock:
		return nil, fmt.Errorf("bad fractal heap table at 0x%x", addr)
	case bits.OnesCount64(h.startBlock) != 1, bits.OnesCount64(h.maxDirect) != 1:
		return nil, fmt.Errorf("fractal heap at 0x%x: block sizes are not powers of two", addr)
	case heapBits == 0 || heapBits > 64, rootRows > maxHeapRows:
		return nil, fmt.Errorf("bad fractal heap table at 0x%x", addr)
	}
	h.width = int(width)
	h.rootRows = int(rootRows)
	h.offWidth = (int(heapBits) + 7) / 8
	h.lenWidth = (log2(h.maxDirect) + 7) / 8
	if maxManaged > 0 {
		h.lenWidth = min(h.lenWidth, (log2(maxManaged)+7)/8)
	}
	return h, nil
}

// rowSize is the size of the blocks in row i of an indirect block.
func (h *FractalHeap) rowSize(i int) uint64 {
	if i == 0 {
		return h.startBlock
	}
	return h.startBlock << (i - 1)
}

// maxDirectRows is the number of rows holding direct blocks.
func (h *FractalHeap) maxDirectRows() int {
	return log2(h.maxDirect) - log2(h.startBlock) + 2
}

// Get returns the object with the given heap ID.
func (h *FractalHeap) Get(id []byte) ([]byte, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("empty heap ID")
	}
	if v := id[0] >> 6; v != 0 {
		return nil, fmt.Errorf("heap ID version %d", v)
	}
	switch (id[0] >> 4) & 0x03 {
	case 0:
		return h.managed(id[1:])
	case 2:
		return h.tiny(id)
	case 1:
		return nil, fmt.Errorf("%w: huge object", ErrUnsupported)
	}
	return nil, fmt.Errorf("heap ID type %d", (id[0]>>4)&0x03)
}

// tiny objects live in the ID itself.
func (h *FractalHeap) tiny(id []byte) ([]byte, error) {
	n, data := int(id[0]&0x0F)+1, id[1:]
	if h.idLen > 18 {
		if len(id) < 2 {
			return nil, fmt.Errorf("short tiny heap ID")
		}
		n, data = (int(id[0]&0x0F)<<8|int(id[1]))+1, id[2:]
	}
	if n > len(data) {
		return nil, fmt.Errorf("tiny object of %d bytes in a %d byte ID", n, len(id))
	}
	return data[:n], nil
}

func (h *FractalHeap) managed(b []byte) ([]byte, error) {
	if len(b) < h.offWidth+h.lenWidth {
		return nil, fmt.Errorf("managed heap ID of %d bytes", len(b)+1)
	}
	off, length := leUint(b[:h.offWidth]), leUint(b[h.offWidth:h.offWidth+h.lenWidth])

	if h.blocks == nil {
		if err := h.loadBlocks(); err != nil {
			return nil, err
		}
	}
	i := sort.Search(len(h.blocks), func(i int) bool {
		return h.blocks[i].offset+h.blocks[i].size > off
	})
	if i == len(h.blocks) || off < h.blocks[i].offset {
		return nil, fmt.Errorf("heap offset %d is in no allocated block", off)
	}
	blk := h.blocks[i]
	if off+length > blk.offset+blk.size {
		return nil, fmt.Errorf("object at heap offset %d overruns its block", off)
	}

	br := h.r.At(int64(blk.addr))
	sig, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "FHDB" {
		return nil, fmt.Errorf("bad direct block signature %q at 0x%x", sig, blk.addr)
	}
	return h.r.At(int64(blk.addr + off - blk.offset)).ReadBytes(int(length))
}

func (h *FractalHeap) loadBlocks() error {
	h.blocks = []directBlock{}
	if h.r.IsUndefinedOffset(h.rootAddr) {
		return nil
	}
	if h.rootRows == 0 {
		h.blocks = append(h.blocks, directBlock{offset: 0, size: h.startBlock, addr: h.rootAddr})
		return nil
	}
	if err := h.walkIndirect(h.rootAddr, h.rootRows, 0); err != nil {
		h.blocks = nil
		return err
	}
	sort.Slice(h.blocks, func(i, j int) bool { return h.blocks[i].offset < h.blocks[j].offset })
	return nil
}

// walkIndirect records the direct blocks below the indirect block at
// addr, which has nrows rows and starts at heap offset base.
func (h *FractalHeap) walkIndirect(addr uint64, nrows int, base uint64) error {
	ir := h.r.At(int64(addr))
	head, err := ir.ReadBytes(5)
	if err != nil {
		return fmt.Errorf("indirect block at 0x%x: %w", addr, err)
	}
	if string(head[:4]) != "FHIB" || head[4] != 0 {
		return fmt.Errorf("bad indirect block at 0x%x", addr)
	}
	ir.Skip(int64(h.r.OffsetSize() + h.offWidth)) // heap address, block offset

	directRows := min(nrows, h.maxDirectRows())
	offset := base
	for row := range nrows {
		size := h.rowSize(row)
		for range h.width {
			child, err := ir.ReadOffset()
			if err != nil {
				return err
			}
			if !h.r.IsUndefinedOffset(child) {
				if row < directRows {
					if len(h.blocks) >= maxHeapBlocks {
						return fmt.Errorf("fractal heap at 0x%x has too many blocks", h.addr)
					}
					h.blocks = append(h.blocks, directBlock{offset: offset, size: size, addr: child})
				} else {
					rows := log2(size) - log2(h.startBlock*uint64(h.width)) + 1
					if rows <= 0 || rows >= nrows {
						return fmt.Errorf("bad indirect block row count at 0x%x", child)
					}
					if err := h.walkIndirect(child, rows, offset); err != nil {
						return err
					}
				}
			}
			offset += size
		}
	}
	return nil
}
