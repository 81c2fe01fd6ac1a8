package alloc

import (
	"fmt"
	"sync"
)

// Block is one allocation.
type Block struct {
	Addr     uint64
	Size     uint64
	Released bool
}

// End returns the first address past the block.
func (b Block) End() uint64 { return b.Addr + b.Size }

// Stats summarizes an allocator.
type Stats struct {
	Blocks   int
	Bytes    uint64 // all allocated bytes, released or not
	Released uint64
	Largest  uint64
}

// Live returns the bytes still referenced.
func (s Stats) Live() uint64 { return s.Bytes - s.Released }

// Allocator is safe for concurrent use.
type Allocator struct {
	mu     sync.Mutex
	base   uint64
	eof    uint64
	blocks []Block
	index  map[uint64]int
	stats  Stats
}

// New returns an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: base, index: make(map[uint64]int)}
}

// Alloc reserves size bytes at the end of the file. A zero size returns
// the current end without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size
	a.index[addr] = len(a.blocks)
	a.blocks = append(a.blocks, Block{Addr: addr, Size: size})

	a.stats.Blocks++
	a.stats.Bytes += size
	a.stats.Largest = max(a.stats.Largest, size)
	return addr
}

// Release marks the block at addr as dead. It reports false when addr
// does not start a live block.
func (a *Allocator) Release(addr uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[addr]
	if !ok || a.blocks[i].Released {
		return false
	}
	a.blocks[i].Released = true
	a.stats.Released += a.blocks[i].Size
	return true
}

// EOFAddr returns the address the next block will get.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// Stats returns a snapshot of the counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Blocks returns every block in address order.
func (a *Allocator) Blocks() []Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Block(nil), a.blocks...)
}

// Validate checks that blocks lie between the base and the end of file
// and do not overlap.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.base
	for _, b := range a.blocks {
		if b.Addr < next {
			return fmt.Errorf("block at 0x%x overlaps space before 0x%x", b.Addr, next)
		}
		next = b.End()
	}
	if next > a.eof {
		return fmt.Errorf("block ending at 0x%x is past end of file 0x%x", next, a.eof)
	}
	return nil
}
