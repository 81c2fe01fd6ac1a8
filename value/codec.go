package value

import (
	"encoding/binary"
	"fmt"
)

// MarshalBinary encodes v as its kind byte followed by the payload: eight
// little-endian bytes for numbers and bools, the raw text for strings and
// markers.
func (v Value) MarshalBinary() ([]byte, error) {
	switch v.kind {
	case Invalid:
		return []byte{byte(Invalid)}, nil
	case String, Error, Unsupported:
		b := make([]byte, 1+len(v.str))
		b[0] = byte(v.kind)
		copy(b[1:], v.str)
		return b, nil
	}
	b := make([]byte, 9)
	b[0] = byte(v.kind)
	binary.LittleEndian.PutUint64(b[1:], v.bits)
	return b, nil
}

// UnmarshalBinary decodes a value written by MarshalBinary.
func (v *Value) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("value: empty encoding")
	}
	k := Kind(b[0])
	if int(k) >= len(kindNames) {
		return fmt.Errorf("value: unknown kind %d", b[0])
	}
	switch k {
	case Invalid:
		*v = Value{}
	case String, Error, Unsupported:
		*v = Value{kind: k, str: string(b[1:])}
	default:
		if len(b) != 9 {
			return fmt.Errorf("value: %s payload is %d bytes, want 8", k, len(b)-1)
		}
		*v = Value{kind: k, bits: binary.LittleEndian.Uint64(b[1:])}
	}
	return nil
}
