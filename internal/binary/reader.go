// Package binary reads and writes the fixed and variable-width integers
// that make up HDF5 metadata. Offsets (file addresses) and lengths have
// a width chosen by the superblock; everything else is 1, 2, 4 or 8
// bytes in the file's byte order.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned for an offset or length width other than
// 2, 4 or 8 bytes.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config fixes the byte order and field widths of a file.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is little-endian with 8-byte offsets and lengths, which
// is what the superblock signature search starts from.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Undefined returns the all-ones address of the given width, which HDF5
// uses for "no address".
func Undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(size)) - 1
}

func (c Config) uint(buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(c.ByteOrder.Uint16(buf))
	case 4:
		return uint64(c.ByteOrder.Uint32(buf))
	case 8:
		return c.ByteOrder.Uint64(buf)
	}
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func (c Config) putUint(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		c.ByteOrder.PutUint16(buf, uint16(v))
	case 4:
		c.ByteOrder.PutUint32(buf, uint32(v))
	case 8:
		c.ByteOrder.PutUint64(buf, v)
	default:
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
	}
}

// Reader decodes metadata from a cursor over an io.ReaderAt. Readers are
// cheap; At forks one at another position.
type Reader struct {
	cfg Config
	src io.ReaderAt
	pos int64
}

// NewReader returns a reader at offset 0 of r.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{cfg: cfg, src: r}
}

// At returns a reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{cfg: r.cfg, src: r.src, pos: offset}
}

// Pos returns the cursor position.
func (r *Reader) Pos() int64 { return r.pos }

// Skip moves the cursor n bytes forward.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align rounds the cursor up to a multiple of n.
func (r *Reader) Align(n int64) {
	if n > 1 {
		r.pos = (r.pos + n - 1) / n * n
	}
}

// OffsetSize returns the address width in bytes.
func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

// LengthSize returns the length width in bytes.
func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// ByteOrder returns the file byte order.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// Peek reads n bytes without moving the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes reads n bytes and advances past them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err == nil {
		r.pos += int64(len(buf))
	}
	return buf, err
}

// ReadUintN reads an n-byte unsigned integer.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return r.cfg.uint(buf), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }

// ReadLength reads a length field.
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// IsUndefinedOffset reports whether addr is the undefined address.
func (r *Reader) IsUndefinedOffset(addr uint64) bool {
	return addr == Undefined(r.cfg.OffsetSize)
}
