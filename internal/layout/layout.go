package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Layout reads the raw elements of one dataset.
type Layout interface {
	// Read returns every element in row-major order.
	Read() ([]byte, error)

	Class() message.LayoutClass
}

// New returns the reader for the storage class named by dl.
func New(
	dl *message.DataLayout,
	space *message.Dataspace,
	dt *message.Datatype,
	filters *message.FilterPipeline,
	r *binary.Reader,
) (Layout, error) {
	if dl == nil {
		return nil, fmt.Errorf("nil layout message")
	}

	switch dl.Class {
	case message.LayoutCompact:
		return NewCompact(dl, space, dt), nil
	case message.LayoutContiguous:
		return NewContiguous(dl, space, dt, r), nil
	case message.LayoutChunked:
		return NewChunked(dl, space, dt, filters, r)
	}
	return nil, fmt.Errorf("unsupported layout class: %s", dl.Class)
}

// Filler is implemented by layouts whose storage may be partly or
// wholly unallocated. Unallocated elements read as value repeated, or as
// zeros when value is nil.
type Filler interface {
	SetFill(value []byte)
}

// fillBytes returns n bytes of value repeated.
func fillBytes(n uint64, value []byte) []byte {
	out := make([]byte, n)
	if len(value) == 0 {
		return out
	}
	for i := 0; i < len(out); i += copy(out[i:], value) {
	}
	return out
}

// dataSize is the size in bytes of every element of the dataset.
func dataSize(space *message.Dataspace, dt *message.Datatype) uint64 {
	if space == nil || dt == nil {
		return 0
	}
	return space.NumElements() * uint64(dt.Size)
}

// Compact storage keeps the elements inside the layout message.
type Compact struct {
	data []byte
}

// NewCompact returns a reader for compact storage. The dataspace and
// datatype are implied by the stored bytes.
func NewCompact(dl *message.DataLayout, _ *message.Dataspace, _ *message.Datatype) *Compact {
	return &Compact{data: dl.CompactData}
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Read returns a copy of the stored bytes.
func (c *Compact) Read() ([]byte, error) {
	return append([]byte(nil), c.data...), nil
}

// Size is the number of stored bytes.
func (c *Compact) Size() int { return len(c.data) }

// Contiguous storage keeps the elements in one block of the file.
type Contiguous struct {
	addr uint64
	size uint64
	fill []byte
	r    *binary.Reader
}

// NewContiguous returns a reader for contiguous storage. A layout that
// does not record its size is sized from the dataspace and datatype.
func NewContiguous(dl *message.DataLayout, space *message.Dataspace, dt *message.Datatype, r *binary.Reader) *Contiguous {
	size := dl.Size
	if size == 0 {
		size = dataSize(space, dt)
	}
	return &Contiguous{addr: dl.Address, size: size, r: r}
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

func (c *Contiguous) SetFill(value []byte) { c.fill = value }

// Read returns the stored block, or fill values when the block was never
// allocated.
func (c *Contiguous) Read() ([]byte, error) {
	if c.r.IsUndefinedOffset(c.addr) {
		return fillBytes(c.size, c.fill), nil
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.r.At(int64(c.addr)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data at 0x%x: %w", c.addr, err)
	}
	return data, nil
}

// Address is the file offset of the first element.
func (c *Contiguous) Address() uint64 { return c.addr }

// Size is the size of the block in bytes.
func (c *Contiguous) Size() uint64 { return c.size }
