package heap

import "github.com/robert-malhotra/h5view/internal/binary"

// maxObjects is the most objects one collection can index.
const maxObjects = 1<<16 - 1

// WriteStrings stores strs as NUL-terminated objects in as many new
// collections as needed and returns their IDs in order. alloc reserves
// file space and returns its address.
func WriteStrings(w *binary.Writer, alloc func(size int64) uint64, strs []string) ([]ID, error) {
	ids := make([]ID, 0, len(strs))
	for start := 0; start < len(strs); start += maxObjects {
		batch := strs[start:min(start+maxObjects, len(strs))]
		buf := encodeCollection(batch, w.LengthSize())
		addr := alloc(int64(len(buf)))
		if err := w.At(int64(addr)).WriteBytes(buf); err != nil {
			return nil, err
		}
		for i := range batch {
			ids = append(ids, ID{Collection: addr, Index: uint32(i + 1)})
		}
	}
	return ids, nil
}

// encodeCollection lays out a version 1 collection: header, objects
// numbered from 1, the index 0 terminator, then padding to eight bytes.
func encodeCollection(strs []string, lengthSize int) []byte {
	headerSize := 8 + lengthSize
	objHeader := 8 + lengthSize

	size := headerSize + 2
	for _, s := range strs {
		n := len(s) + 1
		size += objHeader + n + pad8(n)
	}
	size += pad8(size)

	buf := make([]byte, size)
	copy(buf, "GCOL")
	buf[4] = 1
	putLeUint(buf[8:headerSize], uint64(size))

	p := headerSize
	for i, s := range strs {
		n := len(s) + 1
		le.PutUint16(buf[p:], uint16(i+1))
		le.PutUint16(buf[p+2:], 1) // reference count
		putLeUint(buf[p+8:p+objHeader], uint64(n))
		p += objHeader
		copy(buf[p:], s)
		p += n + pad8(n)
	}
	// The index 0 terminator and padding are already zero.
	return buf
}
