package heap

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// LocalHeap is a version 0 local heap with its data segment loaded.
type LocalHeap struct {
	DataSize     uint64
	FreeListHead uint64
	DataAddress  uint64
	data         []byte
}

// ReadLocalHeap reads the heap header at addr and its data segment.
func ReadLocalHeap(r *binary.Reader, addr uint64) (*LocalHeap, error) {
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading local heap at 0x%x: %w", addr, err)
	}
	if string(head[:4]) != "HEAP" {
		return nil, fmt.Errorf("bad local heap signature %q at 0x%x", head[:4], addr)
	}
	if head[4] != 0 {
		return nil, fmt.Errorf("unsupported local heap version %d", head[4])
	}

	h := &LocalHeap{}
	if h.DataSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeListHead, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize)); err != nil {
		return nil, fmt.Errorf("reading local heap data: %w", err)
	}
	return h, nil
}

// String returns the NUL-terminated string at offset, or "" when offset
// is outside the data segment.
func (h *LocalHeap) String(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	return cstring(h.data[offset:])
}
