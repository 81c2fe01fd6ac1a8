package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link flag bits.
const (
	linkNameWidth    = 0x03
	linkHasOrder     = 0x04
	linkHasType      = 0x08
	linkHasCharset   = 0x10
	linkFlagsDefined = 0x1F
)

// Link names one member of a new-style group (type 0x0006).
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Name          string
	Charset       CharacterSet

	ObjectAddress uint64

	SoftLinkValue string

	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool     { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool     { return m.LinkType == LinkTypeSoft }
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// NewSoftLink returns a link resolved by path when it is followed.
func NewSoftLink(name, target string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeSoft, Name: name, SoftLinkValue: target}
}

func NewExternalLink(name, file, path string) *Link {
	return &Link{Version: 1, LinkType: LinkTypeExternal, Name: name, ExternalFile: file, ExternalPath: path}
}

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	d := newDecoder(data, r)
	l := &Link{Version: d.u8()}
	flags := d.u8()
	if d.err == nil && l.Version != 1 {
		return nil, fmt.Errorf("link version %d", l.Version)
	}
	if flags&^linkFlagsDefined != 0 {
		return nil, fmt.Errorf("link flags %#x", flags)
	}

	if flags&linkHasType != 0 {
		l.LinkType = LinkType(d.u8())
	}
	if flags&linkHasOrder != 0 {
		l.CreationOrder = d.u64()
	}
	if flags&linkHasCharset != 0 {
		l.Charset = CharacterSet(d.u8())
	}
	l.Name = string(d.bytes(int(d.uint(1 << (flags & linkNameWidth)))))

	switch l.LinkType {
	case LinkTypeHard:
		l.ObjectAddress = d.offset()
	case LinkTypeSoft:
		l.SoftLinkValue = string(d.bytes(int(d.u16())))
	case LinkTypeExternal:
		// A version/flags byte, then the file and object paths.
		ext := d.sub(int(d.u16()))
		ext.u8()
		l.ExternalFile = ext.cstring()
		l.ExternalPath = ext.cstring()
		if ext.err != nil && d.err == nil {
			d.err = ext.err
		}
	default:
		// User-defined link types carry an opaque value.
		d.skip(int(d.u16()))
	}
	if d.err != nil {
		return nil, fmt.Errorf("link %q: %w", l.Name, d.err)
	}
	return l, nil
}

// encode writes version 1 with the narrowest name length field.
func (m *Link) encode(e *encoder) {
	var width uint8
	for n := len(m.Name); width < 3 && n >= 1<<(8<<width); {
		width++
	}
	flags := width
	if m.LinkType != LinkTypeHard {
		flags |= linkHasType
	}
	if m.Charset != CharsetASCII {
		flags |= linkHasCharset
	}

	e.u8(1)
	e.u8(flags)
	if flags&linkHasType != 0 {
		e.u8(uint8(m.LinkType))
	}
	if flags&linkHasCharset != 0 {
		e.u8(uint8(m.Charset))
	}
	e.uint(uint64(len(m.Name)), 1<<width)
	e.bytes([]byte(m.Name))

	switch m.LinkType {
	case LinkTypeHard:
		e.offset(m.ObjectAddress)
	case LinkTypeSoft:
		e.u16(uint16(len(m.SoftLinkValue)))
		e.bytes([]byte(m.SoftLinkValue))
	case LinkTypeExternal:
		e.u16(uint16(1 + len(m.ExternalFile) + 1 + len(m.ExternalPath) + 1))
		e.u8(0)
		e.cstring(m.ExternalFile)
		e.cstring(m.ExternalPath)
	}
}
