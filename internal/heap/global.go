package heap

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// ErrNoObject is returned for an index a collection does not hold.
var ErrNoObject = errors.New("global heap object not found")

// ID addresses one object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// IDSize returns the encoded size of an ID.
func IDSize(offsetSize int) int { return offsetSize + 4 }

// ParseID decodes an ID from the start of b.
func ParseID(b []byte, offsetSize int) (ID, error) {
	if len(b) < IDSize(offsetSize) {
		return ID{}, fmt.Errorf("global heap ID needs %d bytes, have %d", IDSize(offsetSize), len(b))
	}
	return ID{
		Collection: leUint(b[:offsetSize]),
		Index:      le.Uint32(b[offsetSize:]),
	}, nil
}

// PutID encodes id into the start of b.
func PutID(b []byte, id ID, offsetSize int) {
	putLeUint(b[:offsetSize], id.Collection)
	le.PutUint32(b[offsetSize:], id.Index)
}

// Collection is a loaded global heap collection.
type Collection struct {
	Size    uint64
	objects map[uint16][]byte
}

// ReadCollection reads the collection at addr.
func ReadCollection(r *binary.Reader, addr uint64) (*Collection, error) {
	if addr == 0 || r.IsUndefinedOffset(addr) {
		return nil, fmt.Errorf("invalid global heap address 0x%x", addr)
	}
	cr := r.At(int64(addr))
	head, err := cr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading global heap at 0x%x: %w", addr, err)
	}
	if string(head[:4]) != "GCOL" {
		return nil, fmt.Errorf("bad global heap signature %q at 0x%x", head[:4], addr)
	}
	if head[4] != 1 {
		return nil, fmt.Errorf("unsupported global heap version %d", head[4])
	}
	size, err := cr.ReadLength()
	if err != nil {
		return nil, err
	}

	c := &Collection{Size: size, objects: make(map[uint16][]byte)}
	end := int64(addr) + int64(size)
	objHeader := int64(8 + r.LengthSize())

	// Index 0 is the free-space object and ends the list.
	for cr.Pos()+objHeader <= end {
		idx, err := cr.ReadUint16()
		if err != nil || idx == 0 {
			break
		}
		cr.Skip(6) // reference count, reserved
		n, err := cr.ReadLength()
		if err != nil {
			break
		}
		data, err := cr.ReadBytes(int(n))
		if err != nil {
			break
		}
		c.objects[idx] = data
		cr.Skip(int64(pad8(int(n))))
	}
	return c, nil
}

// Object returns a copy of the object at index.
func (c *Collection) Object(index uint16) ([]byte, error) {
	data, ok := c.objects[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoObject, index)
	}
	return append([]byte(nil), data...), nil
}

// String returns the object at index up to its first NUL.
func (c *Collection) String(index uint16) (string, error) {
	data, ok := c.objects[index]
	if !ok {
		return "", fmt.Errorf("%w: index %d", ErrNoObject, index)
	}
	return cstring(data), nil
}

// Len returns the number of objects.
func (c *Collection) Len() int { return len(c.objects) }

// Cache loads each collection once.
type Cache struct {
	r     *binary.Reader
	byAdr map[uint64]*Collection
}

// NewCache returns a cache reading through r.
func NewCache(r *binary.Reader) *Cache {
	return &Cache{r: r, byAdr: make(map[uint64]*Collection)}
}

// String resolves id to its string.
func (c *Cache) String(id ID) (string, error) {
	coll, ok := c.byAdr[id.Collection]
	if !ok {
		var err error
		if coll, err = ReadCollection(c.r, id.Collection); err != nil {
			return "", err
		}
		c.byAdr[id.Collection] = coll
	}
	return coll.String(uint16(id.Index))
}
