package binary

import (
	"encoding/binary"
	"math/bits"
)

// Lookup3Checksum is Bob Jenkins' lookup3 hashlittle with a zero seed,
// the checksum on version 2+ superblocks, object headers and chunk
// index blocks.
func Lookup3Checksum(data []byte) uint32 {
	a := 0xdeadbeef + uint32(len(data))
	b, c := a, a

	for len(data) > 12 {
		a += binary.LittleEndian.Uint32(data[0:])
		b += binary.LittleEndian.Uint32(data[4:])
		c += binary.LittleEndian.Uint32(data[8:])
		a, b, c = mix(a, b, c)
		data = data[12:]
	}
	if len(data) == 0 {
		return c
	}

	// Zero padding contributes nothing to the sums.
	var tail [12]byte
	copy(tail[:], data)
	a += binary.LittleEndian.Uint32(tail[0:])
	b += binary.LittleEndian.Uint32(tail[4:])
	c += binary.LittleEndian.Uint32(tail[8:])
	return final(a, b, c)
}

func mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= bits.RotateLeft32(c, 4)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 6)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 8)
	b += a
	a -= c
	a ^= bits.RotateLeft32(c, 16)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 19)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 4)
	b += a
	return a, b, c
}

func final(a, b, c uint32) uint32 {
	c ^= b
	c -= bits.RotateLeft32(b, 14)
	a ^= c
	a -= bits.RotateLeft32(c, 11)
	b ^= a
	b -= bits.RotateLeft32(a, 25)
	c ^= b
	c -= bits.RotateLeft32(b, 16)
	a ^= c
	a -= bits.RotateLeft32(c, 4)
	b ^= a
	b -= bits.RotateLeft32(a, 14)
	c ^= b
	c -= bits.RotateLeft32(b, 24)
	return c
}

// Fletcher32 is the checksum of the fletcher32 filter. Words are
// big-endian; an odd trailing byte is the high byte of a final word.
// Sums are folded rather than reduced mod 65535, as the HDF5 library
// does, so either half may come out as 0xFFFF.
func Fletcher32(data []byte) uint32 {
	var s1, s2 uint32
	fold := func() {
		s1 = s1&0xFFFF + s1>>16
		s2 = s2&0xFFFF + s2>>16
	}
	for len(data) >= 2 {
		// 360 words keep both sums below 2^32 between folds.
		n := min(len(data)/2, 360)
		for range n {
			s1 += uint32(binary.BigEndian.Uint16(data))
			s2 += s1
			data = data[2:]
		}
		fold()
		fold()
	}
	if len(data) == 1 {
		s1 += uint32(data[0]) << 8
		s2 += s1
		fold()
		fold()
	}
	return s2<<16 | s1
}
