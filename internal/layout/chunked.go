package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/filter"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Chunked storage splits the elements into chunks found through an index.
type Chunked struct {
	dl       *message.DataLayout
	space    *message.Dataspace
	dt       *message.Datatype
	pipeline *filter.Pipeline
	fill     []byte
	r        *binary.Reader
}

// NewChunked returns a reader for chunked storage. filters may be nil.
func NewChunked(
	dl *message.DataLayout,
	space *message.Dataspace,
	dt *message.Datatype,
	filters *message.FilterPipeline,
	r *binary.Reader,
) (*Chunked, error) {
	c := &Chunked{dl: dl, space: space, dt: dt, r: r}
	if filters != nil {
		p, err := filter.NewPipeline(filters)
		if err != nil {
			return nil, fmt.Errorf("creating filter pipeline: %w", err)
		}
		c.pipeline = p
	}
	return c, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// SetFill sets the value of elements in chunks that were never written.
func (c *Chunked) SetFill(value []byte) { c.fill = value }

func (c *Chunked) filtered() bool {
	return !c.pipeline.Empty()
}

func (c *Chunked) Read() ([]byte, error) {
	size := dataSize(c.space, c.dt)
	if size == 0 {
		return nil, nil
	}
	dims := c.space.Dimensions
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	// Layouts before version 4 append the element size as a last chunk
	// dimension.
	if len(c.dl.ChunkDims) < len(dims) {
		return nil, fmt.Errorf("chunked layout has %d chunk dimensions for rank %d", len(c.dl.ChunkDims), len(dims))
	}
	g, err := newGrid(dims, c.dl.ChunkDims[:len(dims)], uint64(c.dt.Size))
	if err != nil {
		return nil, err
	}

	chunks, err := c.index(g)
	if err != nil {
		return nil, err
	}

	out := fillBytes(size, c.fill)
	for _, ch := range chunks {
		data, err := c.load(ch, g.chunkBytes())
		if err != nil {
			return nil, fmt.Errorf("chunk at %v: %w", ch.Offset, err)
		}
		if err := g.place(out, data, ch.Offset); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// index lists the allocated chunks. Unallocated chunks read as the fill
// value.
func (c *Chunked) index(g *grid) ([]btree.Chunk, error) {
	addr := c.dl.ChunkIndexAddr
	if c.r.IsUndefinedOffset(addr) {
		return nil, nil
	}
	if c.dl.Version < 4 {
		chunks, err := btree.ReadChunksV1(c.r, addr, len(g.dims))
		if err != nil {
			return nil, fmt.Errorf("reading chunk b-tree: %w", err)
		}
		return chunks, nil
	}

	var (
		chunks []btree.Chunk
		err    error
	)
	switch c.dl.ChunkIndexType {
	case message.ChunkIndexSingleChunk:
		ch := btree.Chunk{Offset: make([]uint64, len(g.dims)), Address: addr}
		if c.dl.ChunkFlags&message.ChunkFlagSingleFiltered != 0 {
			ch.Size = uint32(c.dl.FilteredChunkSize)
			ch.FilterMask = c.dl.FilterMask
		}
		return []btree.Chunk{ch}, nil
	case message.ChunkIndexImplicit:
		chunks = make([]btree.Chunk, g.count())
		for i := range chunks {
			chunks[i] = btree.Chunk{
				Offset:  g.origin(uint64(i)),
				Address: addr + uint64(i)*g.chunkBytes(),
			}
		}
		return chunks, nil
	case message.ChunkIndexFixedArray:
		chunks, err = c.readFixedArray(g)
	case message.ChunkIndexExtensibleArray:
		chunks, err = c.readExtensibleArray(g)
	case message.ChunkIndexBTreeV2:
		chunks, err = btree.ReadChunksV2(c.r, addr, c.dl.ChunkDims[:len(g.dims)])
	default:
		return nil, fmt.Errorf("unsupported chunk index type: %d", c.dl.ChunkIndexType)
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk index: %w", err)
	}
	return chunks, nil
}

// load reads one chunk and undoes its filters.
func (c *Chunked) load(ch btree.Chunk, full uint64) ([]byte, error) {
	size := uint64(ch.Size)
	if size == 0 {
		size = full
	}
	data, err := c.r.At(int64(ch.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	if c.filtered() {
		if data, err = c.pipeline.Decode(data, ch.FilterMask); err != nil {
			return nil, err
		}
	}
	return data, nil
}
