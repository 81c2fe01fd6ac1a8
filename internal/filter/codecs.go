package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// deflate is zlib with the level in client data word 0.
type deflate struct {
	level int
}

func newDeflate(cd []uint32) Filter {
	f := &deflate{level: zlib.DefaultCompression}
	if len(cd) > 0 && cd[0] <= 9 {
		f.level = int(cd[0])
	}
	return f
}

func (f *deflate) ID() uint16 { return message.FilterDeflate }

func (f *deflate) Decode(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (f *deflate) Encode(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(in); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shuffle stores byte k of every element together, for element size in
// client data word 0. Bytes past the last whole element stay in place.
type shuffle struct {
	size int
}

func newShuffle(cd []uint32) Filter {
	f := &shuffle{size: 1}
	if len(cd) > 0 && cd[0] > 0 {
		f.size = int(cd[0])
	}
	return f
}

func (f *shuffle) ID() uint16 { return message.FilterShuffle }

func (f *shuffle) Encode(in []byte) ([]byte, error) {
	return f.transpose(in, true), nil
}

func (f *shuffle) Decode(in []byte) ([]byte, error) {
	return f.transpose(in, false), nil
}

func (f *shuffle) transpose(in []byte, forward bool) []byte {
	n := len(in) / f.size
	if f.size == 1 || n == 0 {
		return in
	}
	rows, cols := n, f.size
	if !forward {
		rows, cols = cols, rows
	}
	out := make([]byte, len(in))
	for r := range rows {
		for c := range cols {
			out[c*rows+r] = in[r*cols+c]
		}
	}
	copy(out[n*f.size:], in[n*f.size:])
	return out
}

// fletcher32 appends a little-endian Fletcher-32 checksum.
type fletcher32 struct{}

func newFletcher32([]uint32) Filter { return fletcher32{} }

func (fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (fletcher32) Encode(in []byte) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(bytes.Clone(in), binpkg.Fletcher32(in)), nil
}

func (fletcher32) Decode(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("%d bytes cannot hold a checksum", len(in))
	}
	body := in[:len(in)-4]
	stored := binary.LittleEndian.Uint32(in[len(body):])
	if sum := binpkg.Fletcher32(body); sum != stored {
		return nil, fmt.Errorf("checksum mismatch: stored %#08x, computed %#08x", stored, sum)
	}
	return body, nil
}

// zstdDecoder is shared by every zstd stage. DecodeAll may run
// concurrently.
var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil)
})

// zstdFilter is the registered Zstandard filter, with the level in
// client data word 0.
type zstdFilter struct {
	level int
	enc   func() (*zstd.Encoder, error)
}

func newZstd(cd []uint32) Filter {
	f := &zstdFilter{level: 3}
	if len(cd) > 0 && cd[0] > 0 {
		f.level = int(cd[0])
	}
	f.enc = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(f.level)))
	})
	return f
}

func (f *zstdFilter) ID() uint16 { return message.FilterZstd }

func (f *zstdFilter) Decode(in []byte) ([]byte, error) {
	d, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(in, nil)
}

func (f *zstdFilter) Encode(in []byte) ([]byte, error) {
	e, err := f.enc()
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(in, nil), nil
}
