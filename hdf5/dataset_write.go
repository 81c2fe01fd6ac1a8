package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/filter"
	"github.com/robert-malhotra/h5view/internal/layout"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/value"
)

// CreateDataset creates a dataset holding data. The shape and element
// type come from the array; a rank-0 array makes a scalar dataset.
func (g *Group) CreateDataset(name string, data *value.Array, opts ...DatasetOption) (*Dataset, error) {
	if err := g.checkNewMember(name); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("dataset %q: nil data", name)
	}

	options := &datasetOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dims := data.Dims()
	dataspace := dataspaceFor(dims)

	var (
		datatype *message.Datatype
		raw      []byte
		err      error
	)
	if data.Kind() == value.String && options.varLen {
		datatype, raw, err = g.file.writeVarLenStrings(data.Strings())
	} else {
		datatype, raw, err = dtype.Encode(data)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding data: %w", err)
	}

	pipeline := options.pipeline(datatype.Size)
	chunks := options.chunks
	if pipeline != nil && chunks == nil {
		chunks = make([]uint64, len(dims))
		copy(chunks, dims)
	}

	var dataLayout *message.DataLayout
	switch {
	case len(raw) == 0:
		dataLayout = message.NewContiguousLayout(message.UndefinedAddress, 0)
		pipeline = nil
	case chunks != nil:
		if dims == nil {
			return nil, fmt.Errorf("dataset %q: scalar datasets cannot be chunked", name)
		}
		dataLayout, err = g.file.writeChunked(raw, dims, chunks, datatype.Size, pipeline)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
	default:
		addr := g.file.allocate(int64(len(raw)))
		if err := g.file.writer.At(int64(addr)).WriteBytes(raw); err != nil {
			return nil, fmt.Errorf("writing data: %w", err)
		}
		dataLayout = message.NewContiguousLayout(addr, uint64(len(raw)))
	}

	messages := object.NewDatasetHeader(dataspace, datatype, dataLayout, pipeline)
	for _, a := range options.attrs {
		arr, err := scalarArray(a.v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.name, err)
		}
		msg, err := g.file.attributeMessage(a.name, arr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.name, err)
		}
		messages = append(messages, msg)
	}

	addr, err := g.file.writeHeader(messages, 0)
	if err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}

	header, err := object.Read(g.file.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading back dataset header: %w", err)
	}
	return newDataset(g.file, childPath(g.path, name), header)
}

// writeChunked splits raw into chunks, filters and writes them, and
// indexes them with a fixed array.
func (f *File) writeChunked(raw []byte, dims, chunks []uint64, elementSize uint32, fp *message.FilterPipeline) (*message.DataLayout, error) {
	if len(chunks) != len(dims) {
		return nil, fmt.Errorf("chunk rank %d does not match data rank %d", len(chunks), len(dims))
	}
	chunkDims := make([]uint32, len(chunks))
	for i, c := range chunks {
		chunkDims[i] = uint32(max(c, 1))
	}

	pipeline, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}

	cw := layout.NewChunkWriter(f.writer, chunkDims, elementSize, pipeline, f.allocate)
	parts, err := cw.Split(raw, dims)
	if err != nil {
		return nil, err
	}
	refs, err := cw.WriteChunks(parts)
	if err != nil {
		return nil, err
	}
	indexAddr, err := cw.WriteFixedArrayIndex(refs)
	if err != nil {
		return nil, fmt.Errorf("writing chunk index: %w", err)
	}

	dl := message.NewChunkedLayout(chunkDims, elementSize, message.ChunkIndexFixedArray)
	dl.ChunkIndexAddr = indexAddr
	return dl, nil
}
