package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/heap"
)

// Entry is one member of an old-style group.
type Entry struct {
	Name string

	// Address of the member's object header. Zero for soft links.
	Address uint64

	// SoftLink holds the target path when the entry is a soft link.
	SoftLink string
}

// IsSoftLink reports whether e points at a path rather than an object.
func (e Entry) IsSoftLink() bool { return e.SoftLink != "" }

const (
	scratchPadSize = 16
	cacheSoftLink  = 2
)

// ReadGroup lists the members of a group indexed by the v1 B-tree at addr.
// Member names are resolved through names, the group's local heap.
func ReadGroup(r *binary.Reader, addr uint64, names *heap.LocalHeap) ([]Entry, error) {
	return readGroupNode(r, addr, names, anyLevel)
}

func readGroupNode(r *binary.Reader, addr uint64, names *heap.LocalHeap, level int) ([]Entry, error) {
	node, err := readV1Node(r, addr, nodeGroup, level)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for i := range node.entries {
		// Group keys are heap offsets of the separating names; a full
		// listing does not need them.
		if _, err := node.r.ReadLength(); err != nil {
			return nil, err
		}
		child, err := node.r.ReadOffset()
		if err != nil {
			return nil, fmt.Errorf("child %d of node 0x%x: %w", i, addr, err)
		}

		var entries []Entry
		if node.level == 0 {
			entries, err = readSymbolNode(r, child, names)
		} else {
			entries, err = readGroupNode(r, child, names, int(node.level)-1)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.LocalHeap) ([]Entry, error) {
	nr := r.At(int64(addr))
	if err := expectSignature(nr, "SNOD"); err != nil {
		return nil, err
	}
	hdr, err := nr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if hdr[0] != 1 {
		return nil, fmt.Errorf("%w: symbol node version %d", ErrCorrupt, hdr[0])
	}
	count := int(nr.ByteOrder().Uint16(hdr[2:]))

	out := make([]Entry, 0, count)
	for i := range count {
		e, err := readSymbol(nr, names)
		if err != nil {
			return nil, fmt.Errorf("symbol %d of node 0x%x: %w", i, addr, err)
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func readSymbol(r *binary.Reader, names *heap.LocalHeap) (Entry, error) {
	nameOff, err := r.ReadOffset()
	if err != nil {
		return Entry{}, err
	}
	objAddr, err := r.ReadOffset()
	if err != nil {
		return Entry{}, err
	}
	cache, err := r.ReadUint32()
	if err != nil {
		return Entry{}, err
	}
	r.Skip(4)
	pad, err := r.ReadBytes(scratchPadSize)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{Name: names.String(nameOff), Address: objAddr}
	if cache == cacheSoftLink {
		off := uint64(r.ByteOrder().Uint32(pad))
		e.Address = 0
		e.SoftLink = names.String(off)
	}
	return e, nil
}
