// Package heap reads and writes the two HDF5 heaps.
//
// A local heap ("HEAP") holds the member names of an old-style group as
// NUL-terminated strings addressed by byte offset. A global heap
// collection ("GCOL") holds numbered objects, here variable-length
// strings, addressed by an [ID]: collection address plus object index.
package heap

import (
	"bytes"
	"encoding/binary"
)

// pad8 returns the bytes needed to round n up to a multiple of eight.
func pad8(n int) int { return (8 - n%8) % 8 }

// cstring returns b up to its first NUL.
func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// leUint decodes a little-endian unsigned integer of len(b) bytes.
func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// putLeUint encodes v into all of b, little-endian.
func putLeUint(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
}

var le = binary.LittleEndian
