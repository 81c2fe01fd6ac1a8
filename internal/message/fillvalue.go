package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Allocation and fill timing, shared by all fill value versions.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3

	FillOnAlloc   uint8 = 0
	FillNever     uint8 = 1
	FillIfDefined uint8 = 2
)

// FillValue is the value of dataset elements that were never written
// (type 0x0005).
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	IsDefined      bool
	Value          []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// Fill returns the user-defined value, or nil when elements read as
// zeros.
func (m *FillValue) Fill() []byte {
	if !m.IsDefined || len(m.Value) == 0 {
		return nil
	}
	return m.Value
}

// NewFillValue returns a version 3 message. A nil value leaves the
// library default of zeros.
func NewFillValue(value []byte) *FillValue {
	return &FillValue{
		Version:        3,
		SpaceAllocTime: AllocLate,
		FillWriteTime:  FillIfDefined,
		IsDefined:      true,
		Value:          value,
	}
}

func parseFillValue(data []byte, r *binpkg.Reader) (*FillValue, error) {
	d := newDecoder(data, r)
	fv := &FillValue{Version: d.u8()}

	switch fv.Version {
	case 1, 2:
		fv.SpaceAllocTime = d.u8()
		fv.FillWriteTime = d.u8()
		fv.IsDefined = d.u8() != 0
		// Version 1 always stores the size; version 2 only when defined.
		if fv.Version == 1 || fv.IsDefined {
			if n := int(d.u32()); n > 0 {
				fv.Value = append([]byte(nil), d.bytes(n)...)
			}
		}
	case 3:
		flags := d.u8()
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = flags >> 2 & 0x03
		fv.IsDefined = flags&0x10 == 0
		if flags&0x20 != 0 {
			fv.Value = append([]byte(nil), d.bytes(int(d.u32()))...)
		}
	default:
		return nil, fmt.Errorf("fill value version %d", fv.Version)
	}
	if d.err != nil {
		return nil, fmt.Errorf("fill value: %w", d.err)
	}
	return fv, nil
}

func (m *FillValue) encode(e *encoder) {
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	if !m.IsDefined {
		flags |= 0x10
	}
	if len(m.Value) > 0 {
		flags |= 0x20
	}
	e.u8(3)
	e.u8(flags)
	if len(m.Value) > 0 {
		e.u32(uint32(len(m.Value)))
		e.bytes(m.Value)
	}
}
