package dtype

// Decoding
//
// Decode turns the raw bytes of a dataset or attribute into a value.Array.
// The element type is resolved through the type mapper first, so every
// datatype that has a host kind decodes into a typed slice and every other
// datatype fails with value.ErrUnsupportedType.
//
// Fixed-width numbers honour the datatype byte order. Bitfields decode to
// bool, true when any byte of the element is non-zero. Fixed-length strings
// stop at the first NUL and space-padded strings are right-trimmed.
//
// Variable-length strings store one reference per element:
//   - 4 bytes: sequence length
//   - offsetSize bytes: global heap collection address
//   - 4 bytes: object index within collection
//
// Collections are read once per Decode call and reused for every element
// that points into them. A null collection address decodes to "".

import (
	"encoding/binary"
	"fmt"
	"math"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/value"
)

// Decode converts the raw bytes of an object with shape dims (nil for a
// scalar) into a typed array. Array datatypes append their dimensions to
// dims. The reader is only needed for variable-length strings.
func Decode(dt *message.Datatype, data []byte, dims []uint64, r *binpkg.Reader) (*value.Array, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	kind, err := value.Map(Describe(dt))
	if err != nil {
		return nil, err
	}

	elem, extra, err := elementShape(dt)
	if err != nil {
		return nil, err
	}
	shape := append(append([]uint64(nil), dims...), extra...)
	if len(shape) == 0 {
		shape = nil
	}

	n := 1
	for _, d := range shape {
		n *= int(d)
	}

	switch kind {
	case value.String:
		if elem.Class == message.ClassVarLen {
			s, err := decodeVarLenStrings(data, n, r)
			if err != nil {
				return nil, err
			}
			return value.NewArray(shape, s)
		}
		strs, err := decodeFixedStrings(elem, data, n)
		if err != nil {
			return nil, err
		}
		return value.NewArray(shape, strs)
	case value.Bool:
		s, err := decodeBits(elem, data, n)
		if err != nil {
			return nil, err
		}
		return value.NewArray(shape, s)
	}

	size := int(elem.Size)
	if len(data) < n*size {
		return nil, fmt.Errorf("data too short: need %d bytes for %d elements, have %d", n*size, n, len(data))
	}
	order := ByteOrder(elem)

	switch kind {
	case value.Int8:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) int8 { return int8(b[0]) }))
	case value.Uint8:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) uint8 { return b[0] }))
	case value.Int16:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) int16 { return int16(order.Uint16(b)) }))
	case value.Uint16:
		return value.NewArray(shape, decodeEach(data, n, size, order.Uint16))
	case value.Int32:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) int32 { return int32(order.Uint32(b)) }))
	case value.Uint32:
		return value.NewArray(shape, decodeEach(data, n, size, order.Uint32))
	case value.Int64:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) int64 { return int64(order.Uint64(b)) }))
	case value.Uint64:
		return value.NewArray(shape, decodeEach(data, n, size, order.Uint64))
	case value.Float32:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) float32 {
			return math.Float32frombits(order.Uint32(b))
		}))
	case value.Float64:
		return value.NewArray(shape, decodeEach(data, n, size, func(b []byte) float64 {
			return math.Float64frombits(order.Uint64(b))
		}))
	}
	return nil, fmt.Errorf("%w: %s", value.ErrUnsupportedType, kind)
}

func decodeEach[T any](data []byte, n, size int, conv func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = conv(data[i*size : (i+1)*size])
	}
	return out
}

func decodeBits(dt *message.Datatype, data []byte, n int) ([]bool, error) {
	size := int(dt.Size)
	if len(data) < n*size {
		return nil, fmt.Errorf("data too short: need %d bytes for %d elements, have %d", n*size, n, len(data))
	}
	out := make([]bool, n)
	for i := range out {
		for _, b := range data[i*size : (i+1)*size] {
			if b != 0 {
				out[i] = true
				break
			}
		}
	}
	return out, nil
}

func decodeFixedStrings(dt *message.Datatype, data []byte, n int) ([]string, error) {
	size := int(dt.Size)
	if len(data) < n*size {
		return nil, fmt.Errorf("data too short: need %d bytes for %d strings, have %d", n*size, n, len(data))
	}
	out := make([]string, n)
	for i := range out {
		raw := data[i*size : (i+1)*size]

		end := len(raw)
		for j, b := range raw {
			if b == 0 {
				end = j
				break
			}
		}
		if dt.StringPadding == message.PadSpacePad {
			for end > 0 && raw[end-1] == ' ' {
				end--
			}
		}
		out[i] = string(raw[:end])
	}
	return out, nil
}

func decodeVarLenStrings(data []byte, n int, r *binpkg.Reader) ([]string, error) {
	offsetSize := 8
	if r != nil {
		offsetSize = r.OffsetSize()
	}
	refSize := 4 + offsetSize + 4
	if len(data) < n*refSize {
		return nil, fmt.Errorf("data too short: need %d bytes for %d references, have %d", n*refSize, n, len(data))
	}

	out := make([]string, n)
	var gheap *heap.Cache

	for i := range out {
		ref := data[i*refSize : (i+1)*refSize]
		if binary.LittleEndian.Uint32(ref[:4]) == 0 {
			continue
		}

		id, err := heap.ParseID(ref[4:], offsetSize)
		if err != nil {
			return nil, fmt.Errorf("parsing global heap ID for element %d: %w", i, err)
		}
		if id.Collection == 0 {
			continue
		}
		if r == nil {
			return nil, fmt.Errorf("variable-length string reading requires file reader (global heap at 0x%x)", id.Collection)
		}
		if gheap == nil {
			gheap = heap.NewCache(r)
		}

		s, err := gheap.String(id)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
