package hdf5

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/robert-malhotra/h5view/internal/alloc"
	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/internal/superblock"
)

// Create creates a new HDF5 file at the given path with a v3 superblock
// and v2 object headers. The file stays readable while it is written.
func Create(path string, opts ...FileOption) (*File, error) {
	cfg := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
	for _, opt := range opts {
		opt(&cfg)
	}

	osFile, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*File, error) {
		osFile.Close()
		os.Remove(path)
		return nil, err
	}
	writer := binpkg.NewWriter(osFile, cfg)

	sb := superblock.New()
	sb.OffsetSize = uint8(cfg.OffsetSize)
	sb.LengthSize = uint8(cfg.LengthSize)

	// The root group header goes right after the superblock.
	allocator := alloc.New(uint64(sb.Size()))
	root, err := object.Encode(writer, object.NewEmptyGroupHeader(), object.MinGroupChunkSize)
	if err != nil {
		return fail(err)
	}
	sb.RootGroupAddress = allocator.Alloc(uint64(len(root)))
	sb.EOFAddress = allocator.EOFAddr()

	if err := sb.Write(writer); err != nil {
		return fail(err)
	}
	if err := writer.At(int64(sb.RootGroupAddress)).WriteBytes(root); err != nil {
		return fail(err)
	}

	f := &File{
		name:       path,
		reader:     binpkg.NewReader(osFile, cfg),
		superblock: sb,
		writable:   true,
		osFile:     osFile,
		writer:     writer,
		allocator:  allocator,
	}
	f.root = &Group{
		file:         f,
		path:         "/",
		addr:         sb.RootGroupAddress,
		loaded:       true,
		pendingLinks: []*message.Link{},
	}
	return f, nil
}

// Flush writes the superblock with the current root address and EOF.
func (f *File) Flush() error {
	if !f.writable {
		return nil
	}

	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer.At(0)); err != nil {
		return err
	}
	return f.osFile.Sync()
}

// IsWritable returns true if the file was created for writing.
func (f *File) IsWritable() bool {
	return f.writable
}

// AllocStats reports the space the writer has used. Released bytes
// belong to headers that were superseded by a rewrite.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// release marks a superseded header as dead space.
func (f *File) release(addr uint64) {
	f.allocator.Release(addr)
}

// allocate reserves space in the file and returns the address.
func (f *File) allocate(size int64) uint64 {
	return f.allocator.Alloc(uint64(size))
}

// writeHeader allocates and writes an object header.
func (f *File) writeHeader(msgs []message.Message, minChunk int) (uint64, error) {
	b, err := object.Encode(f.writer, msgs, minChunk)
	if err != nil {
		return 0, err
	}
	addr := f.allocate(int64(len(b)))
	if err := f.writer.At(int64(addr)).WriteBytes(b); err != nil {
		return 0, err
	}
	return addr, nil
}

// writeVarLenStrings stores strs in a new global heap collection and
// returns the variable-length string datatype and element references.
func (f *File) writeVarLenStrings(strs []string) (*message.Datatype, []byte, error) {
	refs, err := heap.WriteStrings(f.writer, f.allocate, strs)
	if err != nil {
		return nil, nil, fmt.Errorf("writing global heap: %w", err)
	}
	dt := message.NewVarLenStringDatatype(message.CharsetUTF8)
	return dt, dtype.EncodeVarLenRefs(strs, refs, f.writer.OffsetSize()), nil
}
