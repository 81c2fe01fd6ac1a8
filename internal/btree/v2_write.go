package btree

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// NameRef is a densely stored link: its name and fractal heap ID.
type NameRef struct {
	Name string
	ID   []byte
}

const defaultNodeSize = 512

// WriteLinkNameIndex writes a version 2 tree of type 5 records over refs,
// all in one leaf, and returns the header address. Records are ordered
// by the lookup3 hash of the name, then by name.
func WriteLinkNameIndex(w *binary.Writer, alloc func(size int64) uint64, refs []NameRef) (uint64, error) {
	switch {
	case len(refs) == 0:
		return 0, fmt.Errorf("empty link index")
	case len(refs) > 0xFFFF:
		return 0, fmt.Errorf("%d links do not fit one leaf", len(refs))
	}
	type rec struct {
		hash uint32
		ref  NameRef
	}
	recs := make([]rec, len(refs))
	idLen := 0
	for i, r := range refs {
		recs[i] = rec{binary.Lookup3Checksum([]byte(r.Name)), r}
		idLen = max(idLen, len(r.ID))
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].hash != recs[j].hash {
			return recs[i].hash < recs[j].hash
		}
		return recs[i].ref.Name < recs[j].ref.Name
	})
	recSize := 4 + idLen

	var leaf bytes.Buffer
	leaf.WriteString("BTLF")
	leaf.Write([]byte{0, RecordLinkName})
	for _, r := range recs {
		leaf.Write(le(uint64(r.hash), 4))
		id := make([]byte, idLen)
		copy(id, r.ref.ID)
		leaf.Write(id)
	}
	leaf.Write(le(uint64(binary.Lookup3Checksum(leaf.Bytes())), 4))

	nodeSize := defaultNodeSize
	for nodeSize < leaf.Len() {
		nodeSize *= 2
	}
	leafAddr := alloc(int64(nodeSize))
	node := make([]byte, nodeSize)
	copy(node, leaf.Bytes())
	if err := w.At(int64(leafAddr)).WriteBytes(node); err != nil {
		return 0, err
	}

	var h bytes.Buffer
	h.WriteString("BTHD")
	h.Write([]byte{0, RecordLinkName})
	h.Write(le(uint64(nodeSize), 4))
	h.Write(le(uint64(recSize), 2))
	h.Write(le(0, 2)) // depth
	h.Write([]byte{100, 40})
	h.Write(le(leafAddr, w.OffsetSize()))
	h.Write(le(uint64(len(recs)), 2))
	h.Write(le(uint64(len(recs)), w.LengthSize()))
	h.Write(le(uint64(binary.Lookup3Checksum(h.Bytes())), 4))

	addr := alloc(int64(h.Len()))
	if err := w.At(int64(addr)).WriteBytes(h.Bytes()); err != nil {
		return 0, err
	}
	return addr, nil
}

func le(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
