package object

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Limits on what one header may claim, so corrupt sizes fail early.
const (
	maxBlocks    = 4096
	maxBlockSize = 1 << 24
)

type block struct {
	addr uint64
	data []byte
}

// headerReader collects the messages of one header across its chunk and
// continuation blocks.
type headerReader struct {
	r       *binary.Reader
	h       *Header
	pending []block
	seen    map[uint64]bool

	// Version 2 messages carry a creation order when the header tracks it.
	trackOrder bool
}

func newHeaderReader(r *binary.Reader, h *Header, addr uint64, chunk []byte) *headerReader {
	return &headerReader{
		r:       r,
		h:       h,
		pending: []block{{addr: addr, data: chunk}},
		seen:    map[uint64]bool{addr: true},
	}
}

// readPrefixV1 reads the 16-byte version 1 prefix and the first chunk.
func readPrefixV1(r *binary.Reader, addr uint64) (*headerReader, error) {
	b, err := r.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}
	order := r.ByteOrder()
	h := &Header{
		Version:  1,
		Address:  addr,
		RefCount: order.Uint32(b[4:]),
	}
	size := order.Uint32(b[8:])
	if size > maxBlockSize {
		return nil, fmt.Errorf("%w: chunk of %d bytes at %#x", ErrInvalidHeader, size, addr)
	}
	chunk, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: chunk: %w", addr, err)
	}
	return newHeaderReader(r, h, addr, chunk), nil
}

// readPrefixV2 reads an OHDR prefix and the first chunk, verifying the
// checksum that follows it.
func readPrefixV2(r *binary.Reader, addr uint64) (*headerReader, error) {
	start := r.Pos()
	r.Skip(4)
	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: OHDR version %d at %#x", ErrUnsupportedVersion, version, addr)
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	h := &Header{Version: 2, Address: addr, Flags: flags}

	if flags&0x20 != 0 {
		for _, t := range []*uint32{&h.AccessTime, &h.ModTime, &h.ChangeTime, &h.BirthTime} {
			if *t, err = r.ReadUint32(); err != nil {
				return nil, err
			}
		}
	}
	if flags&0x10 != 0 {
		r.Skip(4)
	}
	size, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}
	if size > maxBlockSize {
		return nil, fmt.Errorf("%w: chunk of %d bytes at %#x", ErrInvalidHeader, size, addr)
	}
	chunk, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: chunk: %w", addr, err)
	}
	if err := verify(r, start, r.Pos()); err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}

	hd := newHeaderReader(r, h, addr, chunk)
	hd.trackOrder = flags&0x04 != 0
	return hd, nil
}

// verify compares the checksum stored at end with the bytes [start, end).
func verify(r *binary.Reader, start, end int64) error {
	b, err := r.At(start).ReadBytes(int(end-start) + 4)
	if err != nil {
		return err
	}
	n := len(b) - 4
	if got, want := binary.Lookup3Checksum(b[:n]), r.ByteOrder().Uint32(b[n:]); got != want {
		return fmt.Errorf("%w: stored %#x, computed %#x", ErrChecksum, want, got)
	}
	return nil
}

func (hd *headerReader) run() error {
	for len(hd.pending) > 0 {
		b := hd.pending[0]
		hd.pending = hd.pending[1:]
		var err error
		if hd.h.Version == 1 {
			err = hd.scanV1(b.data)
		} else {
			err = hd.scanV2(b.data)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (hd *headerReader) add(typ message.Type, flags uint8, data []byte) error {
	if typ == message.TypeNIL {
		return nil
	}
	if typ != message.TypeObjectHeaderContinuation {
		hd.h.Messages = append(hd.h.Messages, message.ParseOrMalformed(typ, data, flags, hd.r))
		return nil
	}
	cont, err := message.ParseContinuation(data, hd.r)
	if err != nil {
		return err
	}
	return hd.follow(cont)
}

// follow loads a continuation block, refusing loops.
func (hd *headerReader) follow(c *message.Continuation) error {
	if hd.seen[c.Offset] {
		return fmt.Errorf("%w: continuation loop at %#x", ErrInvalidHeader, c.Offset)
	}
	if len(hd.seen) >= maxBlocks {
		return fmt.Errorf("%w: more than %d continuation blocks", ErrInvalidHeader, maxBlocks)
	}
	if c.Length > maxBlockSize {
		return fmt.Errorf("%w: continuation of %d bytes", ErrInvalidHeader, c.Length)
	}
	hd.seen[c.Offset] = true

	cr := hd.r.At(int64(c.Offset))
	if hd.h.Version == 1 {
		data, err := cr.ReadBytes(int(c.Length))
		if err != nil {
			return fmt.Errorf("continuation at %#x: %w", c.Offset, err)
		}
		hd.pending = append(hd.pending, block{addr: c.Offset, data: data})
		return nil
	}

	if c.Length < 8 {
		return fmt.Errorf("%w: continuation of %d bytes", ErrInvalidHeader, c.Length)
	}
	data, err := cr.ReadBytes(int(c.Length) - 4)
	if err != nil {
		return fmt.Errorf("continuation at %#x: %w", c.Offset, err)
	}
	if !bytes.Equal(data[:4], signatureCnt) {
		return fmt.Errorf("%w: bad continuation signature at %#x", ErrInvalidHeader, c.Offset)
	}
	if err := verify(hd.r, int64(c.Offset), int64(c.Offset)+int64(len(data))); err != nil {
		return fmt.Errorf("continuation at %#x: %w", c.Offset, err)
	}
	hd.pending = append(hd.pending, block{addr: c.Offset, data: data[4:]})
	return nil
}

// scanV1 walks 8-byte aligned version 1 messages: type, size, flags and
// three reserved bytes, then the body.
func (hd *headerReader) scanV1(data []byte) error {
	order := hd.r.ByteOrder()
	for pos := 0; pos+8 <= len(data); {
		typ := message.Type(order.Uint16(data[pos:]))
		size := int(order.Uint16(data[pos+2:]))
		flags := data[pos+4]
		pos += 8
		if pos+size > len(data) {
			return fmt.Errorf("%w: %s message overruns its block", ErrInvalidHeader, typ)
		}
		if err := hd.add(typ, flags, data[pos:pos+size]); err != nil {
			return err
		}
		pos += (size + 7) &^ 7
	}
	return nil
}

// scanV2 walks version 2 messages. Fewer bytes than a message prefix at
// the end of a block are a gap, not a message.
func (hd *headerReader) scanV2(data []byte) error {
	order := hd.r.ByteOrder()
	prefix := 4
	if hd.trackOrder {
		prefix = 6
	}
	for pos := 0; pos+prefix <= len(data); {
		typ := message.Type(data[pos])
		size := int(order.Uint16(data[pos+1:]))
		flags := data[pos+3]
		pos += prefix
		if pos+size > len(data) {
			return fmt.Errorf("%w: %s message overruns its block", ErrInvalidHeader, typ)
		}
		if err := hd.add(typ, flags, data[pos:pos+size]); err != nil {
			return err
		}
		pos += size
	}
	return nil
}
