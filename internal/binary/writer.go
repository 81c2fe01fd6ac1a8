package binary

import (
	"encoding/binary"
	"io"
)

// Writer encodes metadata at a cursor over an io.WriterAt.
type Writer struct {
	cfg Config
	dst io.WriterAt
	pos int64
}

// NewWriter returns a writer at offset 0 of w.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{cfg: cfg, dst: w}
}

// At returns a writer over the same destination positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{cfg: w.cfg, dst: w.dst, pos: offset}
}

// Pos returns the cursor position.
func (w *Writer) Pos() int64 { return w.pos }

// Skip moves the cursor n bytes forward without writing.
func (w *Writer) Skip(n int64) { w.pos += n }

// OffsetSize returns the address width in bytes.
func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

// LengthSize returns the length width in bytes.
func (w *Writer) LengthSize() int { return w.cfg.LengthSize }

// ByteOrder returns the file byte order.
func (w *Writer) ByteOrder() binary.ByteOrder { return w.cfg.ByteOrder }

// UndefinedOffset returns the undefined address at this writer's width.
func (w *Writer) UndefinedOffset() uint64 { return Undefined(w.cfg.OffsetSize) }

// WriteBytes writes data and advances past it.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.dst.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteUintN writes v as an n-byte unsigned integer.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	w.cfg.putUint(buf, v)
	return w.WriteBytes(buf)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteOffset writes a file address.
func (w *Writer) WriteOffset(v uint64) error { return w.WriteUintN(v, w.cfg.OffsetSize) }

// WriteLength writes a length field.
func (w *Writer) WriteLength(v uint64) error { return w.WriteUintN(v, w.cfg.LengthSize) }
