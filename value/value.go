package value

import (
	"math"
	"strconv"
)

// Value is a single decoded element. The zero Value has kind Invalid.
type Value struct {
	kind Kind
	bits uint64 // integers, floats and bools
	str  string // strings, error and unsupported messages
}

func OfBool(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{kind: Bool, bits: b}
}

func OfInt8(v int8) Value       { return Value{kind: Int8, bits: uint64(int64(v))} }
func OfInt16(v int16) Value     { return Value{kind: Int16, bits: uint64(int64(v))} }
func OfInt32(v int32) Value     { return Value{kind: Int32, bits: uint64(int64(v))} }
func OfInt64(v int64) Value     { return Value{kind: Int64, bits: uint64(v)} }
func OfUint8(v uint8) Value     { return Value{kind: Uint8, bits: uint64(v)} }
func OfUint16(v uint16) Value   { return Value{kind: Uint16, bits: uint64(v)} }
func OfUint32(v uint32) Value   { return Value{kind: Uint32, bits: uint64(v)} }
func OfUint64(v uint64) Value   { return Value{kind: Uint64, bits: v} }
func OfFloat32(v float32) Value { return Value{kind: Float32, bits: uint64(math.Float32bits(v))} }
func OfFloat64(v float64) Value { return Value{kind: Float64, bits: math.Float64bits(v)} }
func OfString(v string) Value   { return Value{kind: String, str: v} }

// OfError returns the sentinel stored in place of an element that could not
// be decoded.
func OfError(err error) Value {
	if err == nil {
		return Value{kind: Error}
	}
	return Value{kind: Error, str: err.Error()}
}

// OfUnsupported returns the marker for an element with no host mapping.
func OfUnsupported(what string) Value { return Value{kind: Unsupported, str: what} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was constructed, as opposed to the zero Value.
func (v Value) IsValid() bool { return v.kind != Invalid }

// IsError reports whether v is a decode failure sentinel.
func (v Value) IsError() bool { return v.kind == Error }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.kind == Bool && v.bits != 0 }

// Int returns signed integers sign-extended, unsigned ones converted, and
// floats truncated.
func (v Value) Int() int64 {
	switch {
	case v.kind.IsSigned(), v.kind.IsUnsigned(), v.kind == Bool:
		return int64(v.bits)
	case v.kind.IsFloat():
		return int64(v.Float())
	}
	return 0
}

// Uint returns the integer payload as an unsigned number.
func (v Value) Uint() uint64 {
	switch {
	case v.kind.IsSigned(), v.kind.IsUnsigned(), v.kind == Bool:
		return v.bits
	case v.kind.IsFloat():
		return uint64(v.Float())
	}
	return 0
}

// Float returns numeric payloads as float64.
func (v Value) Float() float64 {
	switch {
	case v.kind == Float32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case v.kind == Float64:
		return math.Float64frombits(v.bits)
	case v.kind.IsSigned():
		return float64(int64(v.bits))
	case v.kind.IsUnsigned():
		return float64(v.bits)
	}
	return 0
}

// Str returns the string payload, or the message of an error or
// unsupported marker. It is empty for other kinds.
func (v Value) Str() string { return v.str }

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.bits == o.bits && v.str == o.str
}

// String formats the value for display.
func (v Value) String() string {
	switch {
	case v.kind == Bool:
		return strconv.FormatBool(v.Bool())
	case v.kind.IsSigned():
		return strconv.FormatInt(int64(v.bits), 10)
	case v.kind.IsUnsigned():
		return strconv.FormatUint(v.bits, 10)
	case v.kind == Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case v.kind == Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case v.kind == String:
		return v.str
	case v.kind == Error:
		return "error: " + v.str
	case v.kind == Unsupported:
		return "unsupported: " + v.str
	}
	return ""
}
