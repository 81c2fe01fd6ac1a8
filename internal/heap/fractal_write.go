package heap

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// Parameters of the heaps WriteFractalHeap creates. They are the HDF5
// defaults for link storage, which give 7-byte managed IDs.
const (
	LinkHeapIDLen = 7

	heapWidth      = 4
	heapStartBlock = 512
	heapMaxDirect  = 1 << 16
	heapBits       = 32
	heapMaxManaged = 4096
)

// WriteFractalHeap stores objs in a new heap whose root is one direct
// block, and returns the heap header address and each object's ID.
func WriteFractalHeap(w *binary.Writer, alloc func(size int64) uint64, objs [][]byte) (uint64, [][]byte, error) {
	offWidth := heapBits / 8
	prefix := 5 + w.OffsetSize() + offWidth

	used := prefix
	for i, o := range objs {
		if len(o) == 0 || len(o) > heapMaxManaged {
			return 0, nil, fmt.Errorf("heap object %d has %d bytes", i, len(o))
		}
		used += len(o)
	}
	block := max(uint64(heapStartBlock), uint64(1)<<bits.Len64(uint64(used-1)))
	maxDirect := max(uint64(heapMaxDirect), block)
	lenWidth := min(log2(maxDirect)+7, log2(heapMaxManaged)+7) / 8

	headerSize := 4 + 1 + 2 + 2 + 1 + 4 +
		2*w.OffsetSize() + 10*w.LengthSize() +
		2 + 2*w.LengthSize() + 2 + 2 + w.OffsetSize() + 2 + 4
	headerAddr := alloc(int64(headerSize))
	blockAddr := alloc(int64(block))

	buf := make([]byte, block)
	copy(buf, "FHDB")
	putLeUint(buf[5:5+w.OffsetSize()], headerAddr)
	ids := make([][]byte, len(objs))
	p := prefix
	for i, o := range objs {
		id := make([]byte, LinkHeapIDLen)
		putLeUint(id[1:1+offWidth], uint64(p))
		putLeUint(id[1+offWidth:1+offWidth+lenWidth], uint64(len(o)))
		ids[i] = id
		p += copy(buf[p:], o)
	}
	if err := w.At(int64(blockAddr)).WriteBytes(buf); err != nil {
		return 0, nil, err
	}

	h := make([]byte, 0, headerSize)
	u := func(v uint64, n int) {
		for i := range n {
			h = append(h, byte(v>>(8*i)))
		}
	}
	off, length := w.OffsetSize(), w.LengthSize()
	undef := w.UndefinedOffset()

	h = append(h, "FRHP"...)
	u(0, 1)
	u(LinkHeapIDLen, 2)
	u(0, 2) // no I/O filters
	u(0, 1) // flags
	u(heapMaxManaged, 4)
	u(0, length)     // next huge object ID
	u(undef, off)    // huge object B-tree
	u(block-uint64(used), length)
	u(undef, off)    // free space manager
	u(block, length) // managed space
	u(block, length) // allocated managed space
	u(block, length) // allocation iterator
	u(uint64(len(objs)), length)
	u(0, 4*length) // huge and tiny sizes and counts
	u(heapWidth, 2)
	u(block, length)
	u(maxDirect, length)
	u(heapBits, 2)
	u(0, 2) // starting rows of the root indirect block
	u(blockAddr, off)
	u(0, 2) // the root is a direct block
	u(uint64(binary.Lookup3Checksum(h)), 4)

	if err := w.At(int64(headerAddr)).WriteBytes(h); err != nil {
		return 0, nil, err
	}
	return headerAddr, ids, nil
}
