package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// ErrCorrupt reports a B-tree node that does not parse.
var ErrCorrupt = errors.New("corrupt b-tree")

const (
	nodeGroup = 0
	nodeChunk = 1

	anyLevel = -1
)

// v1Node is the fixed prefix of a version 1 node. The cursor in r sits on
// the first key when readV1Node returns.
//
// Children must sit exactly one level below their parent, so a corrupt
// file cannot send a scan round in a cycle.
type v1Node struct {
	level   uint8
	entries int
	r       *binary.Reader
}

func readV1Node(r *binary.Reader, addr uint64, kind uint8, level int) (*v1Node, error) {
	nr := r.At(int64(addr))
	if err := expectSignature(nr, "TREE"); err != nil {
		return nil, err
	}
	hdr, err := nr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if hdr[0] != kind {
		return nil, fmt.Errorf("%w: node at 0x%x has type %d, want %d", ErrCorrupt, addr, hdr[0], kind)
	}
	if level != anyLevel && int(hdr[1]) != level {
		return nil, fmt.Errorf("%w: node at 0x%x has level %d, want %d", ErrCorrupt, addr, hdr[1], level)
	}
	// Sibling pointers are not needed for a full scan.
	nr.Skip(2 * int64(nr.OffsetSize()))
	return &v1Node{
		level:   hdr[1],
		entries: int(nr.ByteOrder().Uint16(hdr[2:])),
		r:       nr,
	}, nil
}

func expectSignature(r *binary.Reader, sig string) error {
	at := r.Pos()
	b, err := r.ReadBytes(len(sig))
	if err != nil {
		return fmt.Errorf("reading signature at 0x%x: %w", at, err)
	}
	if string(b) != sig {
		return fmt.Errorf("%w: signature %q at 0x%x, want %q", ErrCorrupt, b, at, sig)
	}
	return nil
}

// encSize is the number of bytes needed to store values up to max.
func encSize(max uint64) int {
	n := 1
	for max > 0xff {
		max >>= 8
		n++
	}
	return n
}
