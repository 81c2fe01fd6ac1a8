package dtype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/value"
)

// ForKind returns the little-endian datatype written for kind k. strSize is
// the fixed string length and is ignored for other kinds.
func ForKind(k value.Kind, strSize int) (*message.Datatype, error) {
	switch k {
	case value.Bool:
		return message.NewBitfieldDatatype(1, message.OrderLE), nil
	case value.Int8:
		return message.NewFixedPointDatatype(1, true, message.OrderLE), nil
	case value.Int16:
		return message.NewFixedPointDatatype(2, true, message.OrderLE), nil
	case value.Int32:
		return message.NewFixedPointDatatype(4, true, message.OrderLE), nil
	case value.Int64:
		return message.NewFixedPointDatatype(8, true, message.OrderLE), nil
	case value.Uint8:
		return message.NewFixedPointDatatype(1, false, message.OrderLE), nil
	case value.Uint16:
		return message.NewFixedPointDatatype(2, false, message.OrderLE), nil
	case value.Uint32:
		return message.NewFixedPointDatatype(4, false, message.OrderLE), nil
	case value.Uint64:
		return message.NewFixedPointDatatype(8, false, message.OrderLE), nil
	case value.Float32:
		return message.NewFloatDatatype(4, message.OrderLE), nil
	case value.Float64:
		return message.NewFloatDatatype(8, message.OrderLE), nil
	case value.String:
		if strSize < 1 {
			strSize = 1
		}
		return message.NewStringDatatype(uint32(strSize), message.PadNullPad, message.CharsetUTF8), nil
	}
	return nil, fmt.Errorf("%w: cannot write %s", value.ErrUnsupportedType, k)
}

// Encode serializes a as fixed-size little-endian elements and returns the
// datatype describing them. Strings are written null-padded to the longest
// element.
func Encode(a *value.Array) (*message.Datatype, []byte, error) {
	strSize := 0
	if s, ok := value.Slice[string](a); ok {
		for _, v := range s {
			strSize = max(strSize, len(v))
		}
	}

	dt, err := ForKind(a.Kind(), strSize)
	if err != nil {
		return nil, nil, err
	}

	size := int(dt.Size)
	buf := make([]byte, a.Len()*size)
	le := binary.LittleEndian

	for i := 0; i < a.Len(); i++ {
		b := buf[i*size : (i+1)*size]
		v := a.Index(i)
		switch k := a.Kind(); {
		case k == value.Bool:
			if v.Bool() {
				b[0] = 1
			}
		case k == value.String:
			copy(b, v.Str())
		case k == value.Float32:
			le.PutUint32(b, math.Float32bits(float32(v.Float())))
		case k == value.Float64:
			le.PutUint64(b, math.Float64bits(v.Float()))
		default:
			putUint(b, v.Uint())
		}
	}
	return dt, buf, nil
}

func putUint(b []byte, u uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(b, u)
	}
}

// EncodeVarLenRefs builds the element bytes of a variable-length string
// dataset from the heap IDs of its strings.
func EncodeVarLenRefs(strs []string, ids []heap.ID, offsetSize int) []byte {
	refSize := VarLenRefSize(offsetSize)
	buf := make([]byte, len(ids)*refSize)
	for i, id := range ids {
		b := buf[i*refSize:]
		binary.LittleEndian.PutUint32(b, uint32(len(strs[i])))
		heap.PutID(b[4:], id, offsetSize)
	}
	return buf
}

// VarLenRefSize returns the size of one variable-length reference.
func VarLenRefSize(offsetSize int) int {
	return 4 + heap.IDSize(offsetSize)
}
