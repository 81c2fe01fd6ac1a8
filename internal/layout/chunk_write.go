package layout

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/filter"
)

// ChunkRef locates one written chunk.
type ChunkRef struct {
	Address    uint64
	Size       uint32 // stored size in bytes, after filtering
	FilterMask uint32
}

// ChunkWriter writes the chunks of one dataset and their fixed array index.
type ChunkWriter struct {
	w         *binary.Writer
	chunkDims []uint32
	esize     uint32
	pipeline  *filter.Pipeline
	alloc     func(size int64) uint64
}

// NewChunkWriter returns a writer that places blocks at addresses handed
// out by alloc. pipeline may be nil.
func NewChunkWriter(w *binary.Writer, chunkDims []uint32, elementSize uint32, pipeline *filter.Pipeline, alloc func(size int64) uint64) *ChunkWriter {
	return &ChunkWriter{w: w, chunkDims: chunkDims, esize: elementSize, pipeline: pipeline, alloc: alloc}
}

// ChunkSize is the unfiltered size in bytes of one chunk.
func (cw *ChunkWriter) ChunkSize() uint64 {
	size := uint64(cw.esize)
	for _, d := range cw.chunkDims {
		size *= uint64(d)
	}
	return size
}

func (cw *ChunkWriter) filtered() bool {
	return !cw.pipeline.Empty()
}

// Split cuts row-major data with the given dimensions into full-size
// chunks in row-major chunk order. Edge chunks are zero padded.
func (cw *ChunkWriter) Split(data []byte, dims []uint64) ([][]byte, error) {
	g, err := newGrid(dims, cw.chunkDims, uint64(cw.esize))
	if err != nil {
		return nil, err
	}
	chunks := make([][]byte, g.count())
	for i := range chunks {
		chunks[i] = g.extract(data, g.origin(uint64(i)))
	}
	return chunks, nil
}

// WriteChunks filters and writes each chunk.
func (cw *ChunkWriter) WriteChunks(chunks [][]byte) ([]ChunkRef, error) {
	refs := make([]ChunkRef, len(chunks))
	for i, chunk := range chunks {
		stored, mask := chunk, uint32(0)
		if cw.filtered() {
			var err error
			if stored, mask, err = cw.pipeline.Encode(chunk); err != nil {
				return nil, fmt.Errorf("filtering chunk %d: %w", i, err)
			}
		}
		addr := cw.alloc(int64(len(stored)))
		if err := cw.w.At(int64(addr)).WriteBytes(stored); err != nil {
			return nil, fmt.Errorf("writing chunk %d: %w", i, err)
		}
		refs[i] = ChunkRef{Address: addr, Size: uint32(len(stored)), FilterMask: mask}
	}
	return refs, nil
}

// sizeWidth is the width of the stored size in filtered entries: one
// byte more than the unfiltered chunk size needs, at most eight.
func (cw *ChunkWriter) sizeWidth() int {
	return min(1+(bits.Len64(cw.ChunkSize())+7)/8, 8)
}

// WriteFixedArrayIndex writes a fixed array index for refs and returns
// the address of its header. The data block is never paged.
func (cw *ChunkWriter) WriteFixedArrayIndex(refs []ChunkRef) (uint64, error) {
	if len(refs) == 0 {
		return 0, fmt.Errorf("no chunks to index")
	}

	client := uint8(clientChunk)
	entry := cw.w.OffsetSize()
	if cw.filtered() {
		client = clientFilteredChunk
		entry += cw.sizeWidth() + 4
	}
	pageBits := max(10, bits.Len64(uint64(len(refs)-1)))

	hdrSize := 8 + cw.w.LengthSize() + cw.w.OffsetSize() + 4
	hdrAddr := cw.alloc(int64(hdrSize))
	dblockSize := blockHeader + cw.w.OffsetSize() + len(refs)*entry + 4
	dblockAddr := cw.alloc(int64(dblockSize))

	var b block
	b.sig("FADB", client)
	b.uint(hdrAddr, cw.w.OffsetSize())
	for _, ref := range refs {
		b.uint(ref.Address, cw.w.OffsetSize())
		if client == clientFilteredChunk {
			b.uint(uint64(ref.Size), cw.sizeWidth())
			b.uint(uint64(ref.FilterMask), 4)
		}
	}
	if err := b.flush(cw.w, dblockAddr); err != nil {
		return 0, fmt.Errorf("writing fixed array data block: %w", err)
	}

	b = nil
	b.sig("FAHD", client)
	b = append(b, byte(entry), byte(pageBits))
	b.uint(uint64(len(refs)), cw.w.LengthSize())
	b.uint(dblockAddr, cw.w.OffsetSize())
	if err := b.flush(cw.w, hdrAddr); err != nil {
		return 0, fmt.Errorf("writing fixed array header: %w", err)
	}
	return hdrAddr, nil
}

// Signature, version and client ID.
const blockHeader = 6

// block assembles a checksummed little-endian metadata block.
type block []byte

func (b *block) sig(s string, client uint8) {
	*b = append(*b, s...)
	*b = append(*b, 0, client)
}

func (b *block) uint(v uint64, n int) {
	for i := range n {
		*b = append(*b, byte(v>>(8*i)))
	}
}

func (b *block) flush(w *binary.Writer, addr uint64) error {
	b.uint(uint64(binary.Lookup3Checksum(*b)), 4)
	return w.At(int64(addr)).WriteBytes(*b)
}
