package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Attribute is a small named value stored in an object header
// (type 0x000C). Data holds the raw elements in Datatype's encoding.
type Attribute struct {
	Version   uint8
	Name      string
	Charset   CharacterSet
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	return &Attribute{Version: 3, Name: name, Datatype: dt, Dataspace: ds, Data: data}
}

func NewScalarAttribute(name string, dt *Datatype, data []byte) *Attribute {
	return NewAttribute(name, dt, NewScalarDataspace(), data)
}

// parseAttribute handles versions 1 to 3. Version 1 pads the name,
// datatype and dataspace to multiples of eight; version 3 adds the name
// character set.
func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	d := newDecoder(data, r)
	a := &Attribute{Version: d.u8()}
	if d.err == nil && (a.Version < 1 || a.Version > 3) {
		return nil, fmt.Errorf("attribute version %d", a.Version)
	}
	flags := d.u8()
	if flags != 0 {
		return nil, fmt.Errorf("attribute uses shared messages (flags %#x)", flags)
	}
	nameLen := int(d.u16())
	dtLen := int(d.u16())
	dsLen := int(d.u16())
	if a.Version == 3 {
		a.Charset = CharacterSet(d.u8())
	}

	field := func(n int) *decoder {
		f := d.sub(n)
		if a.Version == 1 {
			d.skip((8 - n%8) % 8)
		}
		return f
	}

	name := field(nameLen).rest()
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	a.Name = string(name)
	dtData := field(dtLen).rest()
	dsData := field(dsLen).rest()
	if d.err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, d.err)
	}

	var err error
	if a.Datatype, err = parseDatatype(dtData, r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	if a.Dataspace, err = parseDataspace(dsData, r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	a.Data = append([]byte(nil), d.rest()...)
	return a, nil
}

// encode writes version 3.
func (m *Attribute) encode(e *encoder) {
	sub := func(s Serializable) []byte {
		inner := &encoder{osize: e.osize, lsize: e.lsize}
		s.encode(inner)
		return inner.buf
	}
	dt, ds := sub(m.Datatype), sub(m.Dataspace)

	e.u8(3)
	e.u8(0)
	e.u16(uint16(len(m.Name) + 1))
	e.u16(uint16(len(dt)))
	e.u16(uint16(len(ds)))
	e.u8(uint8(m.Charset))
	e.cstring(m.Name)
	e.bytes(dt)
	e.bytes(ds)
	e.bytes(m.Data)
}
