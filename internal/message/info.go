package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// UndefinedAddress is the all-ones address for 8-byte offsets.
const UndefinedAddress = ^uint64(0)

// SymbolTable points an old-style group at its member B-tree and name
// heap (type 0x0011).
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binpkg.Reader) (*SymbolTable, error) {
	d := newDecoder(data, r)
	st := &SymbolTable{BTreeAddress: d.offset(), LocalHeapAddress: d.offset()}
	if d.err != nil {
		return nil, fmt.Errorf("symbol table: %w", d.err)
	}
	return st, nil
}

// LinkInfo marks a new-style group (type 0x0002). A defined fractal
// heap address means the links are stored densely rather than as link
// messages.
type LinkInfo struct {
	Version                uint8
	Flags                  uint8
	MaxCreationIndex       uint64
	FractalHeapAddr        uint64
	NameIndexBTreeAddr     uint64
	CreationOrderBTreeAddr uint64
	undefined              uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

func (m *LinkInfo) IsDense() bool { return isDense(m.FractalHeapAddr, m.undefined) }

// Index returns the B-tree over dense links: the creation order index
// when there is one, otherwise the name index.
func (m *LinkInfo) Index() (addr uint64, byOrder bool) {
	return denseIndex(m.Flags, m.NameIndexBTreeAddr, m.CreationOrderBTreeAddr, m.undefined)
}

// NewLinkInfo returns link info for a group with compact storage.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{FractalHeapAddr: UndefinedAddress, NameIndexBTreeAddr: UndefinedAddress}
}

// NewDenseLinkInfo returns link info for links stored in the fractal heap
// at heap and indexed by name in the B-tree at index.
func NewDenseLinkInfo(heap, index uint64) *LinkInfo {
	return &LinkInfo{FractalHeapAddr: heap, NameIndexBTreeAddr: index}
}

func parseLinkInfo(data []byte, r *binpkg.Reader) (*LinkInfo, error) {
	d := newDecoder(data, r)
	m := &LinkInfo{Version: d.u8(), Flags: d.u8(), undefined: undefinedFor(r)}
	if d.err == nil && m.Version != 0 {
		return nil, fmt.Errorf("link info version %d", m.Version)
	}
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = d.u64()
	}
	m.FractalHeapAddr = d.offset()
	m.NameIndexBTreeAddr = d.offset()
	if m.Flags&0x02 != 0 {
		m.CreationOrderBTreeAddr = d.offset()
	}
	if d.err != nil {
		return nil, fmt.Errorf("link info: %w", d.err)
	}
	return m, nil
}

// encode always writes the heap and name index addresses, undefined or
// not; the HDF5 library rejects link info without them.
func (m *LinkInfo) encode(e *encoder) {
	e.u8(0)
	e.u8(m.Flags)
	if m.Flags&0x01 != 0 {
		e.u64(m.MaxCreationIndex)
	}
	e.offset(m.FractalHeapAddr)
	e.offset(m.NameIndexBTreeAddr)
	if m.Flags&0x02 != 0 {
		e.offset(m.CreationOrderBTreeAddr)
	}
}

// AttributeInfo is present when an object may store attributes densely
// (type 0x0015).
type AttributeInfo struct {
	Version                uint8
	Flags                  uint8
	MaxCreationIndex       uint16
	FractalHeapAddr        uint64
	NameIndexBTreeAddr     uint64
	CreationOrderBTreeAddr uint64
	undefined              uint64
}

func (m *AttributeInfo) Type() Type { return TypeAttributeInfo }

func (m *AttributeInfo) IsDense() bool { return isDense(m.FractalHeapAddr, m.undefined) }

func (m *AttributeInfo) Index() (addr uint64, byOrder bool) {
	return denseIndex(m.Flags, m.NameIndexBTreeAddr, m.CreationOrderBTreeAddr, m.undefined)
}

func parseAttributeInfo(data []byte, r *binpkg.Reader) (*AttributeInfo, error) {
	d := newDecoder(data, r)
	m := &AttributeInfo{Version: d.u8(), Flags: d.u8(), undefined: undefinedFor(r)}
	if d.err == nil && m.Version != 0 {
		return nil, fmt.Errorf("attribute info version %d", m.Version)
	}
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = d.u16()
	}
	m.FractalHeapAddr = d.offset()
	m.NameIndexBTreeAddr = d.offset()
	if m.Flags&0x02 != 0 {
		m.CreationOrderBTreeAddr = d.offset()
	}
	if d.err != nil {
		return nil, fmt.Errorf("attribute info: %w", d.err)
	}
	return m, nil
}

// GroupInfo holds the compact/dense thresholds of a new-style group
// (type 0x000A).
type GroupInfo struct {
	Version         uint8
	Flags           uint8
	MaxCompactLinks uint16
	MinDenseLinks   uint16
	EstNumEntries   uint16
	EstLinkNameLen  uint16
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// NewGroupInfo returns group info that keeps the library defaults.
func NewGroupInfo() *GroupInfo { return &GroupInfo{} }

func parseGroupInfo(data []byte, r *binpkg.Reader) (*GroupInfo, error) {
	d := newDecoder(data, r)
	m := &GroupInfo{Version: d.u8(), Flags: d.u8()}
	if m.Flags&0x01 != 0 {
		m.MaxCompactLinks = d.u16()
		m.MinDenseLinks = d.u16()
	}
	if m.Flags&0x02 != 0 {
		m.EstNumEntries = d.u16()
		m.EstLinkNameLen = d.u16()
	}
	if d.err != nil {
		return nil, fmt.Errorf("group info: %w", d.err)
	}
	return m, nil
}

func (m *GroupInfo) encode(e *encoder) {
	e.u8(0)
	e.u8(m.Flags)
	if m.Flags&0x01 != 0 {
		e.u16(m.MaxCompactLinks)
		e.u16(m.MinDenseLinks)
	}
	if m.Flags&0x02 != 0 {
		e.u16(m.EstNumEntries)
		e.u16(m.EstLinkNameLen)
	}
}

func isDense(heap, undef uint64) bool {
	if undef == 0 {
		undef = UndefinedAddress
	}
	return heap != 0 && heap != undef
}

func denseIndex(flags uint8, byName, byOrder, undef uint64) (uint64, bool) {
	if flags&0x02 != 0 && isDense(byOrder, undef) {
		return byOrder, true
	}
	return byName, false
}

func undefinedFor(r *binpkg.Reader) uint64 {
	if r == nil {
		return UndefinedAddress
	}
	return binpkg.Undefined(r.OffsetSize())
}
