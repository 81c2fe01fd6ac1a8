package message

import (
	"fmt"
	"math/bits"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// DatatypeClass is the low nibble of the first datatype byte.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "variable-length", "array",
}

func (c DatatypeClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class %d", uint8(c))
}

type ByteOrder uint8

const (
	OrderLE   ByteOrder = 0
	OrderBE   ByteOrder = 1
	OrderVAX  ByteOrder = 2
	OrderNone ByteOrder = 3
)

type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the element type of a dataset or attribute
// (type 0x0003). Which fields are set depends on Class.
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	ByteOrder ByteOrder

	// Integers, bitfields and floats.
	BitOffset    uint16
	BitPrecision uint16
	Signed       bool

	// Floats.
	ExponentLocation uint8
	ExponentSize     uint8
	MantissaLocation uint8
	MantissaSize     uint8
	ExponentBias     uint32

	// Fixed and variable-length strings.
	StringPadding StringPadding
	CharSet       CharacterSet

	// Opaque.
	Tag string

	Members []CompoundMember

	// BaseType is the element of an array or the storage type of an enum.
	ArrayDims  []uint32
	BaseType   *Datatype
	EnumValues []EnumValue

	VarLenType     *Datatype
	IsVarLenString bool
}

type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

// EnumValue is one named value of an enum, in the base type's encoding.
type EnumValue struct {
	Name  string
	Value []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

func (m *Datatype) IsInteger() bool  { return m.Class == ClassFixedPoint }
func (m *Datatype) IsFloat() bool    { return m.Class == ClassFloatPoint }
func (m *Datatype) IsCompound() bool { return m.Class == ClassCompound }
func (m *Datatype) IsArray() bool    { return m.Class == ClassArray }
func (m *Datatype) IsVarLen() bool   { return m.Class == ClassVarLen }

// IsString reports fixed and variable-length strings.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

func parseDatatype(data []byte, r *binpkg.Reader) (*Datatype, error) {
	d := newDecoder(data, r)
	dt := decodeDatatype(d, 0)
	if d.err != nil {
		return nil, fmt.Errorf("datatype: %w", d.err)
	}
	return dt, nil
}

// maxTypeDepth bounds nesting of compound, array and variable-length types.
const maxTypeDepth = 16

// decodeDatatype reads one datatype and exactly the properties it owns,
// so it can be used for types nested inside other types.
func decodeDatatype(d *decoder, depth int) *Datatype {
	if depth > maxTypeDepth {
		if d.err == nil {
			d.err = fmt.Errorf("datatype nested deeper than %d", maxTypeDepth)
		}
		return nil
	}
	head := d.u8()
	b0, b1, b2 := d.u8(), d.u8(), d.u8()
	dt := &Datatype{
		Version:   head >> 4,
		Class:     DatatypeClass(head & 0x0F),
		ClassBits: uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16,
		Size:      d.u32(),
	}
	bits := dt.ClassBits

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(bits & 1)
		dt.Signed = dt.Class == ClassFixedPoint && bits&0x08 != 0
		dt.BitOffset = d.u16()
		dt.BitPrecision = d.u16()

	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(bits & 1)
		if bits&0x41 == 0x41 {
			dt.ByteOrder = OrderVAX
		}
		dt.Signed = true
		dt.BitOffset = d.u16()
		dt.BitPrecision = d.u16()
		dt.ExponentLocation = d.u8()
		dt.ExponentSize = d.u8()
		dt.MantissaLocation = d.u8()
		dt.MantissaSize = d.u8()
		dt.ExponentBias = d.u32()

	case ClassTime:
		dt.ByteOrder = ByteOrder(bits & 1)
		dt.BitPrecision = d.u16()

	case ClassString:
		dt.StringPadding = StringPadding(bits & 0x0F)
		dt.CharSet = CharacterSet(bits >> 4 & 0x0F)

	case ClassOpaque:
		tag := d.bytes(int(bits & 0xFF))
		for i, c := range tag {
			if c == 0 {
				tag = tag[:i]
				break
			}
		}
		dt.Tag = string(tag)

	case ClassCompound:
		n := int(bits & 0xFFFF)
		for range n {
			if d.err != nil {
				break
			}
			dt.Members = append(dt.Members, decodeMember(d, dt, depth))
		}

	case ClassReference:
		dt.ByteOrder = OrderNone

	case ClassEnum:
		dt.BaseType = decodeDatatype(d, depth+1)
		if dt.BaseType == nil {
			return dt
		}
		dt.ByteOrder = dt.BaseType.ByteOrder
		dt.Signed = dt.BaseType.Signed
		n := int(bits & 0xFFFF)
		dt.EnumValues = make([]EnumValue, n)
		for i := range dt.EnumValues {
			start := d.pos
			dt.EnumValues[i].Name = d.cstring()
			if dt.Version < 3 {
				d.align8(start)
			}
		}
		for i := range dt.EnumValues {
			dt.EnumValues[i].Value = d.bytes(int(dt.BaseType.Size))
		}

	case ClassVarLen:
		dt.IsVarLenString = bits&0x0F == 1
		dt.StringPadding = StringPadding(bits >> 4 & 0x0F)
		dt.CharSet = CharacterSet(bits >> 8 & 0x0F)
		dt.VarLenType = decodeDatatype(d, depth+1)

	case ClassArray:
		rank := int(d.u8())
		if dt.Version < 3 {
			d.skip(3)
		}
		dt.ArrayDims = make([]uint32, rank)
		for i := range dt.ArrayDims {
			dt.ArrayDims[i] = d.u32()
		}
		if dt.Version < 3 {
			d.skip(4 * rank) // permutation, always the identity
		}
		dt.BaseType = decodeDatatype(d, depth+1)

	default:
		d.err = fmt.Errorf("unknown datatype class %d", dt.Class)
	}
	return dt
}

func decodeMember(d *decoder, parent *Datatype, depth int) CompoundMember {
	start := d.pos
	m := CompoundMember{Name: d.cstring()}

	switch parent.Version {
	case 1:
		d.align8(start)
		m.ByteOffset = d.u32()
		rank := int(d.u8())
		d.skip(3 + 4 + 4)
		var dims [4]uint32
		for i := range dims {
			dims[i] = d.u32()
		}
		m.Type = decodeDatatype(d, depth+1)
		if rank > 0 && rank <= len(dims) && m.Type != nil {
			m.Type = NewArrayDatatype(dims[:rank:rank], m.Type)
		}
	case 2:
		d.align8(start)
		m.ByteOffset = d.u32()
		m.Type = decodeDatatype(d, depth+1)
	default:
		m.ByteOffset = uint32(d.uint(memberOffsetSize(parent.Size)))
		m.Type = decodeDatatype(d, depth+1)
	}
	return m
}

// memberOffsetSize is the width of a version 3 member offset: the fewest
// bytes that hold the compound size.
func memberOffsetSize(size uint32) int {
	if size == 0 {
		return 1
	}
	return (bits.Len32(size)-1)/8 + 1
}

// encode writes version 1 for simple classes and version 3 for compound,
// enum and array types so member offsets and names are unpadded.
func (m *Datatype) encode(e *encoder) {
	version := uint8(1)
	switch m.Class {
	case ClassCompound, ClassEnum, ClassArray:
		version = 3
	}
	e.u8(uint8(m.Class) | version<<4)
	e.u8(uint8(m.ClassBits))
	e.u8(uint8(m.ClassBits >> 8))
	e.u8(uint8(m.ClassBits >> 16))
	e.u32(m.Size)

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		e.u16(m.BitOffset)
		e.u16(m.BitPrecision)
	case ClassFloatPoint:
		e.u16(m.BitOffset)
		e.u16(m.BitPrecision)
		e.u8(m.ExponentLocation)
		e.u8(m.ExponentSize)
		e.u8(m.MantissaLocation)
		e.u8(m.MantissaSize)
		e.u32(m.ExponentBias)
	case ClassTime:
		e.u16(m.BitPrecision)
	case ClassOpaque:
		tag := make([]byte, m.ClassBits&0xFF)
		copy(tag, m.Tag)
		e.bytes(tag)
	case ClassCompound:
		for _, mem := range m.Members {
			e.cstring(mem.Name)
			e.uint(uint64(mem.ByteOffset), memberOffsetSize(m.Size))
			mem.Type.encode(e)
		}
	case ClassEnum:
		m.BaseType.encode(e)
		for _, v := range m.EnumValues {
			e.cstring(v.Name)
		}
		for _, v := range m.EnumValues {
			e.bytes(v.Value)
		}
	case ClassVarLen:
		m.VarLenType.encode(e)
	case ClassArray:
		e.u8(uint8(len(m.ArrayDims)))
		for _, d := range m.ArrayDims {
			e.u32(d)
		}
		m.BaseType.encode(e)
	}
}

// NewFixedPointDatatype returns an integer type using all size*8 bits.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	bits := uint32(order)
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Version:      1,
		Class:        ClassFixedPoint,
		ClassBits:    bits,
		Size:         size,
		ByteOrder:    order,
		BitPrecision: uint16(size * 8),
		Signed:       signed,
	}
}

func NewBitfieldDatatype(size uint32, order ByteOrder) *Datatype {
	return &Datatype{
		Version:      1,
		Class:        ClassBitfield,
		ClassBits:    uint32(order),
		Size:         size,
		ByteOrder:    order,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype returns an IEEE 754 binary32 or binary64 type.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	dt := &Datatype{
		Version:      1,
		Class:        ClassFloatPoint,
		Size:         size,
		ByteOrder:    order,
		Signed:       true,
		BitPrecision: uint16(size * 8),
	}
	switch size {
	case 4:
		dt.ExponentLocation, dt.ExponentSize = 23, 8
		dt.MantissaSize, dt.ExponentBias = 23, 127
	case 8:
		dt.ExponentLocation, dt.ExponentSize = 52, 11
		dt.MantissaSize, dt.ExponentBias = 52, 1023
	}
	// Mantissa normalization 2 (implied leading one) and the sign bit
	// position in the second byte.
	dt.ClassBits = uint32(order) | 2<<4 | (size*8-1)<<8
	return dt
}

func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Version:       1,
		Class:         ClassString,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}

// NewVarLenStringDatatype returns a variable-length string whose elements
// are global heap references.
func NewVarLenStringDatatype(charset CharacterSet) *Datatype {
	return &Datatype{
		Version:        1,
		Class:          ClassVarLen,
		ClassBits:      1 | uint32(charset)<<8,
		Size:           16,
		CharSet:        charset,
		VarLenType:     NewFixedPointDatatype(1, false, OrderLE),
		IsVarLenString: true,
	}
}

func NewCompoundDatatype(size uint32, members []CompoundMember) *Datatype {
	return &Datatype{
		Version:   3,
		Class:     ClassCompound,
		ClassBits: uint32(len(members)),
		Size:      size,
		Members:   members,
	}
}

// NewArrayDatatype returns an array of base with the given dimensions.
func NewArrayDatatype(dims []uint32, base *Datatype) *Datatype {
	size := base.Size
	for _, d := range dims {
		size *= d
	}
	return &Datatype{
		Version:   3,
		Class:     ClassArray,
		Size:      size,
		ArrayDims: dims,
		BaseType:  base,
	}
}

// NewEnumDatatype returns an enum stored as base.
func NewEnumDatatype(base *Datatype, values []EnumValue) *Datatype {
	return &Datatype{
		Version:    3,
		Class:      ClassEnum,
		ClassBits:  uint32(len(values)),
		Size:       base.Size,
		ByteOrder:  base.ByteOrder,
		Signed:     base.Signed,
		BaseType:   base,
		EnumValues: values,
	}
}
