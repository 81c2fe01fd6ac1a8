package hdf5

import (
	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/value"
)

// FileOption configures Create.
type FileOption func(*binpkg.Config)

func validWidth(n int) bool { return n == 2 || n == 4 || n == 8 }

// WithOffsetSize sets the width of file addresses: 2, 4 or 8 bytes.
// Other widths are ignored.
func WithOffsetSize(size int) FileOption {
	return func(c *binpkg.Config) {
		if validWidth(size) {
			c.OffsetSize = size
		}
	}
}

// WithLengthSize sets the width of stored lengths: 2, 4 or 8 bytes.
func WithLengthSize(size int) FileOption {
	return func(c *binpkg.Config) {
		if validWidth(size) {
			c.LengthSize = size
		}
	}
}

// DatasetOption configures CreateDataset.
type DatasetOption func(*datasetOptions)

type namedValue struct {
	name string
	v    value.Value
}

type datasetOptions struct {
	chunks     []uint64
	shuffle    bool
	compressor *message.FilterInfo
	checksum   bool
	varLen     bool
	attrs      []namedValue
}

// WithChunks stores the dataset in chunks of the given shape. Filtered
// datasets without explicit chunks are stored as one chunk.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) { o.chunks = dims }
}

// WithCompression deflates every chunk at level 1 to 9. Level 0 turns
// compression off.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) {
		switch {
		case level == 0:
			o.compressor = nil
		case level > 0 && level <= 9:
			o.compressor = &message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{uint32(level)}}
		}
	}
}

// WithZstd compresses every chunk with Zstandard at the given level. The
// stage is marked optional, as HDF5 plugins register it.
func WithZstd(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level > 0 && level <= 22 {
			o.compressor = &message.FilterInfo{ID: message.FilterZstd, Flags: 1, Name: "zstd", ClientData: []uint32{uint32(level)}}
		}
	}
}

func WithShuffle() DatasetOption {
	return func(o *datasetOptions) { o.shuffle = true }
}

// WithFletcher32 appends a checksum to every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) { o.checksum = true }
}

// WithVarLenStrings stores string elements in the global heap rather
// than in fixed-size slots.
func WithVarLenStrings() DatasetOption {
	return func(o *datasetOptions) { o.varLen = true }
}

// WithAttribute adds a scalar attribute. Attributes keep option order.
func WithAttribute(name string, v value.Value) DatasetOption {
	return func(o *datasetOptions) {
		o.attrs = append(o.attrs, namedValue{name: name, v: v})
	}
}

// pipeline returns the filter pipeline message in shuffle, compress,
// checksum order, or nil when no filter is set.
func (o *datasetOptions) pipeline(elementSize uint32) *message.FilterPipeline {
	var stages []message.FilterInfo
	if o.shuffle {
		stages = append(stages, message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{elementSize}})
	}
	if o.compressor != nil {
		stages = append(stages, *o.compressor)
	}
	if o.checksum {
		stages = append(stages, message.FilterInfo{ID: message.FilterFletcher32})
	}
	if stages == nil {
		return nil
	}
	return message.NewFilterPipeline(stages...)
}
