// Package value maps HDF5 element types onto a closed set of host kinds and
// carries decoded scalars and arrays as tagged unions.
package value

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when a datatype has no host kind.
var ErrUnsupportedType = errors.New("unsupported data type")

// Kind identifies the host representation of a value.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
	Error       // decode failure sentinel, payload is the message
	Unsupported // element type has no host mapping
)

var kindNames = [...]string{
	Invalid:     "invalid",
	Bool:        "bool",
	Int8:        "int8",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int64",
	Uint8:       "uint8",
	Uint16:      "uint16",
	Uint32:      "uint32",
	Uint64:      "uint64",
	Float32:     "float32",
	Float64:     "float64",
	String:      "string",
	Error:       "error",
	Unsupported: "unsupported",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool { return k >= Int8 && k <= Int64 }

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool { return k >= Uint8 && k <= Uint64 }

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

// IsNumeric reports whether k holds a number.
func (k Kind) IsNumeric() bool { return k.IsSigned() || k.IsUnsigned() || k.IsFloat() }

// IsData reports whether k carries decoded file data, as opposed to a marker.
func (k Kind) IsData() bool { return k >= Bool && k <= String }

// Class is an HDF5 datatype class. The numbering follows the file format.
type Class uint8

const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassTime       Class = 2
	ClassString     Class = 3
	ClassBitfield   Class = 4
	ClassOpaque     Class = 5
	ClassCompound   Class = 6
	ClassReference  Class = 7
	ClassEnum       Class = 8
	ClassVarLen     Class = 9
	ClassArray      Class = 10
)

var classNames = [...]string{
	ClassFixedPoint: "integer",
	ClassFloatPoint: "float",
	ClassTime:       "time",
	ClassString:     "string",
	ClassBitfield:   "bitfield",
	ClassOpaque:     "opaque",
	ClassCompound:   "compound",
	ClassReference:  "reference",
	ClassEnum:       "enum",
	ClassVarLen:     "vlen",
	ClassArray:      "array",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Descriptor is the part of an HDF5 datatype the mapper looks at.
// Enums and arrays are described by their base type.
type Descriptor struct {
	Class        Class
	Size         int
	Signed       bool
	VarLenString bool
}

func (d Descriptor) String() string {
	if d.Class == ClassVarLen && d.VarLenString {
		return "vlen string"
	}
	return fmt.Sprintf("%s%d", d.Class, d.Size*8)
}

// Map resolves a descriptor to its host kind. Unmapped descriptors return
// Unsupported and an error wrapping ErrUnsupportedType.
func Map(d Descriptor) (Kind, error) {
	switch d.Class {
	case ClassFixedPoint:
		switch d.Size {
		case 1:
			return pick(d.Signed, Int8, Uint8), nil
		case 2:
			return pick(d.Signed, Int16, Uint16), nil
		case 4:
			return pick(d.Signed, Int32, Uint32), nil
		case 8:
			return pick(d.Signed, Int64, Uint64), nil
		}
	case ClassFloatPoint:
		switch d.Size {
		case 4:
			return Float32, nil
		case 8:
			return Float64, nil
		}
	case ClassString:
		return String, nil
	case ClassVarLen:
		if d.VarLenString {
			return String, nil
		}
	case ClassBitfield:
		return Bool, nil
	}
	return Unsupported, fmt.Errorf("%w: %s", ErrUnsupportedType, d)
}

func pick(signed bool, s, u Kind) Kind {
	if signed {
		return s
	}
	return u
}

// Type pairs a descriptor with its mapped kind.
type Type struct {
	Descriptor
	Kind Kind
}

// TypeOf maps d and returns the combined type. The returned Type is valid
// even when err is non-nil; its Kind is then Unsupported.
func TypeOf(d Descriptor) (Type, error) {
	k, err := Map(d)
	return Type{Descriptor: d, Kind: k}, err
}

func (t Type) String() string {
	if t.Kind == Unsupported {
		return "unsupported " + t.Descriptor.String()
	}
	return t.Kind.String()
}
