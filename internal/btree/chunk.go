package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// Chunk locates one stored chunk of a dataset.
type Chunk struct {
	// Offset is the chunk origin in dataset element coordinates.
	Offset []uint64

	// FilterMask has bit i set when filter i was skipped for this chunk.
	FilterMask uint32

	// Size is the stored (possibly compressed) size in bytes. Zero means
	// the chunk is unfiltered and has the full chunk size.
	Size uint32

	Address uint64
}

// ReadChunksV1 lists the chunks of a rank-ndims dataset indexed by the
// version 1 B-tree at addr. Unallocated chunks are omitted.
func ReadChunksV1(r *binary.Reader, addr uint64, ndims int) ([]Chunk, error) {
	return readChunkNode(r, addr, ndims, anyLevel)
}

func readChunkNode(r *binary.Reader, addr uint64, ndims, level int) ([]Chunk, error) {
	node, err := readV1Node(r, addr, nodeChunk, level)
	if err != nil {
		return nil, err
	}

	var out []Chunk
	// Keys bracket the children, so there is one more key than children.
	// Each key carries an extra trailing offset for the element byte.
	for i := range node.entries {
		key, err := readChunkKey(node.r, ndims+1)
		if err != nil {
			return nil, fmt.Errorf("key %d of node 0x%x: %w", i, addr, err)
		}
		child, err := node.r.ReadOffset()
		if err != nil {
			return nil, fmt.Errorf("child %d of node 0x%x: %w", i, addr, err)
		}

		if node.level > 0 {
			chunks, err := readChunkNode(r, child, ndims, int(node.level)-1)
			if err != nil {
				return nil, err
			}
			out = append(out, chunks...)
			continue
		}
		if r.IsUndefinedOffset(child) || key.Size == 0 {
			continue
		}
		key.Address = child
		key.Offset = key.Offset[:ndims]
		out = append(out, key)
	}
	return out, nil
}

func readChunkKey(r *binary.Reader, n int) (Chunk, error) {
	var c Chunk
	var err error
	if c.Size, err = r.ReadUint32(); err != nil {
		return c, err
	}
	if c.FilterMask, err = r.ReadUint32(); err != nil {
		return c, err
	}
	c.Offset = make([]uint64, n)
	for d := range c.Offset {
		if c.Offset[d], err = r.ReadUint64(); err != nil {
			return c, err
		}
	}
	return c, nil
}
