package value

import (
	"fmt"
	"strings"
)

// Element is the set of Go types an Array can hold.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | string
}

// Array is a homogeneous, row-major buffer of elements with a shape.
// A nil dims slice means a scalar holding one element.
type Array struct {
	kind Kind
	dims []uint64
	data any // one of the Element slices, or nil for marker kinds
}

// NewArray wraps data with the given shape. The product of dims must equal
// len(data); a scalar takes nil dims and one element.
func NewArray[T Element](dims []uint64, data []T) (*Array, error) {
	if n := count(dims); n != uint64(len(data)) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", dims, n, len(data))
	}
	return &Array{kind: kindOf[T](), dims: cloneDims(dims), data: data}, nil
}

// Vector wraps data as a rank-1 array.
func Vector[T Element](data []T) *Array {
	return &Array{kind: kindOf[T](), dims: []uint64{uint64(len(data))}, data: data}
}

// Scalar wraps a single element as a rank-0 array.
func Scalar[T Element](v T) *Array {
	return &Array{kind: kindOf[T](), data: []T{v}}
}

// Empty returns an array with no elements. Marker kinds use it to carry
// an unsupported or failed payload.
func Empty(k Kind) *Array {
	return &Array{kind: k, dims: []uint64{0}}
}

func kindOf[T Element]() Kind {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case string:
		return String
	}
	return Invalid
}

func count(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

func cloneDims(dims []uint64) []uint64 {
	if dims == nil {
		return nil
	}
	return append([]uint64(nil), dims...)
}

// Kind returns the element kind.
func (a *Array) Kind() Kind { return a.kind }

// Dims returns a copy of the shape.
func (a *Array) Dims() []uint64 { return cloneDims(a.dims) }

// Rank returns the number of dimensions; 0 for a scalar.
func (a *Array) Rank() int { return len(a.dims) }

// Len returns the number of elements.
func (a *Array) Len() int {
	switch d := a.data.(type) {
	case []bool:
		return len(d)
	case []int8:
		return len(d)
	case []int16:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []uint8:
		return len(d)
	case []uint16:
		return len(d)
	case []uint32:
		return len(d)
	case []uint64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	}
	return 0
}

// Index returns the i'th element in row-major order.
func (a *Array) Index(i int) Value {
	switch d := a.data.(type) {
	case []bool:
		return OfBool(d[i])
	case []int8:
		return OfInt8(d[i])
	case []int16:
		return OfInt16(d[i])
	case []int32:
		return OfInt32(d[i])
	case []int64:
		return OfInt64(d[i])
	case []uint8:
		return OfUint8(d[i])
	case []uint16:
		return OfUint16(d[i])
	case []uint32:
		return OfUint32(d[i])
	case []uint64:
		return OfUint64(d[i])
	case []float32:
		return OfFloat32(d[i])
	case []float64:
		return OfFloat64(d[i])
	case []string:
		return OfString(d[i])
	}
	panic(fmt.Sprintf("value: index %d out of range for empty %s array", i, a.kind))
}

// At returns the element at the given coordinates. The number of indices
// must match the rank.
func (a *Array) At(idx ...int) (Value, error) {
	if len(idx) != len(a.dims) {
		return Value{}, fmt.Errorf("got %d indices for rank %d", len(idx), len(a.dims))
	}
	flat := 0
	for i, x := range idx {
		if x < 0 || uint64(x) >= a.dims[i] {
			return Value{}, fmt.Errorf("index %d out of range for dimension %d of size %d", x, i, a.dims[i])
		}
		flat = flat*int(a.dims[i]) + x
	}
	return a.Index(flat), nil
}

// Values returns every element boxed as a Value.
func (a *Array) Values() []Value {
	out := make([]Value, a.Len())
	for i := range out {
		out[i] = a.Index(i)
	}
	return out
}

// Join formats the elements separated by sep.
func (a *Array) Join(sep string) string {
	parts := make([]string, a.Len())
	for i := range parts {
		parts[i] = a.Index(i).String()
	}
	return strings.Join(parts, sep)
}

func (a *Array) Bools() []bool       { s, _ := Slice[bool](a); return s }
func (a *Array) Int8s() []int8       { s, _ := Slice[int8](a); return s }
func (a *Array) Int16s() []int16     { s, _ := Slice[int16](a); return s }
func (a *Array) Int32s() []int32     { s, _ := Slice[int32](a); return s }
func (a *Array) Int64s() []int64     { s, _ := Slice[int64](a); return s }
func (a *Array) Uint8s() []uint8     { s, _ := Slice[uint8](a); return s }
func (a *Array) Uint16s() []uint16   { s, _ := Slice[uint16](a); return s }
func (a *Array) Uint32s() []uint32   { s, _ := Slice[uint32](a); return s }
func (a *Array) Uint64s() []uint64   { s, _ := Slice[uint64](a); return s }
func (a *Array) Float32s() []float32 { s, _ := Slice[float32](a); return s }
func (a *Array) Float64s() []float64 { s, _ := Slice[float64](a); return s }
func (a *Array) Strings() []string   { s, _ := Slice[string](a); return s }

// Slice returns the flat backing slice when the array holds T.
func Slice[T Element](a *Array) ([]T, bool) {
	if a == nil {
		return nil, false
	}
	s, ok := a.data.([]T)
	return s, ok
}

// Matrix returns a rank-2 array as rows sharing the flat buffer.
func Matrix[T Element](a *Array) ([][]T, error) {
	flat, ok := Slice[T](a)
	if !ok {
		return nil, fmt.Errorf("array holds %s", a.kind)
	}
	if len(a.dims) != 2 {
		return nil, fmt.Errorf("matrix view needs rank 2, have %d", len(a.dims))
	}
	rows, cols := int(a.dims[0]), int(a.dims[1])
	out := make([][]T, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out, nil
}

// Cube returns a rank-3 array as nested slices sharing the flat buffer.
func Cube[T Element](a *Array) ([][][]T, error) {
	flat, ok := Slice[T](a)
	if !ok {
		return nil, fmt.Errorf("array holds %s", a.kind)
	}
	if len(a.dims) != 3 {
		return nil, fmt.Errorf("cube view needs rank 3, have %d", len(a.dims))
	}
	d0, d1, d2 := int(a.dims[0]), int(a.dims[1]), int(a.dims[2])
	out := make([][][]T, d0)
	for i := range out {
		out[i] = make([][]T, d1)
		for j := range out[i] {
			start := (i*d1 + j) * d2
			out[i][j] = flat[start : start+d2 : start+d2]
		}
	}
	return out, nil
}
