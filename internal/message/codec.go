package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// ErrTruncated reports a message body shorter than its fields require.
var ErrTruncated = errors.New("message truncated")

// decoder reads the fields of one message body. The first failure sticks:
// later reads return zero values and err reports where decoding stopped.
type decoder struct {
	data  []byte
	pos   int
	osize int
	lsize int
	order binary.ByteOrder
	err   error
}

func newDecoder(data []byte, r *binpkg.Reader) *decoder {
	d := &decoder{data: data, osize: 8, lsize: 8, order: binary.LittleEndian}
	if r != nil {
		d.osize, d.lsize, d.order = r.OffsetSize(), r.LengthSize(), r.ByteOrder()
	}
	return d
}

// sub returns a decoder over the next n bytes and skips them.
func (d *decoder) sub(n int) *decoder {
	b := d.bytes(n)
	return &decoder{data: b, osize: d.osize, lsize: d.lsize, order: d.order, err: d.err}
}

func (d *decoder) remaining() int { return len(d.data) - d.pos }

func (d *decoder) take(n int, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.data) {
		d.err = fmt.Errorf("%w: %s needs %d bytes at %d, have %d", ErrTruncated, what, n, d.pos, d.remaining())
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) skip(n int) { d.take(n, "padding") }

func (d *decoder) bytes(n int) []byte { return d.take(n, "field") }

// rest returns everything left in the body.
func (d *decoder) rest() []byte {
	if d.err != nil {
		return nil
	}
	return d.take(d.remaining(), "field")
}

func (d *decoder) u8() uint8 {
	if b := d.take(1, "byte"); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 { return uint16(d.uint(2)) }
func (d *decoder) u32() uint32 { return uint32(d.uint(4)) }
func (d *decoder) u64() uint64 { return d.uint(8) }

func (d *decoder) offset() uint64 { return d.uint(d.osize) }
func (d *decoder) length() uint64 { return d.uint(d.lsize) }

// uint reads an n-byte unsigned integer in the file byte order.
func (d *decoder) uint(n int) uint64 {
	b := d.take(n, fmt.Sprintf("%d-byte integer", n))
	if b == nil {
		return 0
	}
	return decodeUint(b, n, d.order)
}

// cstring reads a NUL-terminated string, consuming the terminator.
func (d *decoder) cstring() string {
	if d.err != nil {
		return ""
	}
	for i := d.pos; i < len(d.data); i++ {
		if d.data[i] == 0 {
			s := string(d.data[d.pos:i])
			d.pos = i + 1
			return s
		}
	}
	d.err = fmt.Errorf("%w: unterminated string at %d", ErrTruncated, d.pos)
	return ""
}

// align8 skips to the next multiple of eight from start.
func (d *decoder) align8(start int) {
	if pad := (8 - (d.pos-start)%8) % 8; pad > 0 {
		d.skip(pad)
	}
}

func decodeUint(b []byte, n int, order binary.ByteOrder) uint64 {
	switch n {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	if order == binary.BigEndian {
		for _, c := range b[:n] {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// encoder builds a message body in little-endian order.
type encoder struct {
	buf   []byte
	osize int
	lsize int
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) uint(v uint64, n int) {
	for i := range n {
		e.buf = append(e.buf, byte(v>>(8*i)))
	}
}

func (e *encoder) offset(v uint64) { e.uint(v, e.osize) }
func (e *encoder) length(v uint64) { e.uint(v, e.lsize) }

func (e *encoder) bytes(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) zeros(n int) { e.buf = append(e.buf, make([]byte, n)...) }

func (e *encoder) cstring(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// pad8 zero-fills to the next multiple of eight from start.
func (e *encoder) pad8(start int) {
	e.zeros((8 - (len(e.buf)-start)%8) % 8)
}

// undefined is the all-ones address.
func (e *encoder) undefined() uint64 { return binpkg.Undefined(e.osize) }

// Serializable is a message the writer can store in an object header.
type Serializable interface {
	Message
	encode(e *encoder)
}

// Encode returns the body of m for the sizes of w.
func Encode(m Serializable, w *binpkg.Writer) []byte {
	e := &encoder{osize: w.OffsetSize(), lsize: w.LengthSize()}
	m.encode(e)
	return e.buf
}

// Serialize writes the body of m at the position of w.
func Serialize(m Serializable, w *binpkg.Writer) error {
	return w.WriteBytes(Encode(m, w))
}

// SerializedSize is the size of the body of m for the sizes of w.
func SerializedSize(m Serializable, w *binpkg.Writer) int {
	return len(Encode(m, w))
}
