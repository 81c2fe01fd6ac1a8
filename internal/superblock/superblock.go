package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Signature starts every superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock holds the file-wide settings of an HDF5 file.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	// Flags are the file consistency flags. Writers that crash leave
	// them set.
	Flags uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Set for version 0 and 1 files whose root entry caches its symbol
	// table.
	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64

	GroupLeafNodeK     uint16
	GroupInternalNodeK uint16
	IndexedStorageK    uint16

	// Offset is where the signature was found.
	Offset int64
}

// New returns a version 3 superblock with 8-byte addresses and lengths.
func New() *Superblock {
	return &Superblock{Version: 3, OffsetSize: 8, LengthSize: 8}
}

// ReaderConfig describes how to decode the rest of the file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size is the encoded size of a version 2 or 3 superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Read finds and decodes the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	prefix := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		n, err := r.ReadAt(prefix, off)
		if n < len(prefix) {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(prefix[:len(Signature)], Signature) {
			continue
		}

		var sb *Superblock
		switch v := prefix[len(Signature)]; v {
		case 0, 1:
			sb, err = readV0(r, off, v)
		case 2, 3:
			sb, err = readV2(r, off, v)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err != nil {
			return nil, err
		}
		sb.Offset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func validSize(n uint8) bool {
	return n == 2 || n == 4 || n == 8
}

func (sb *Superblock) checkSizes() error {
	if !validSize(sb.OffsetSize) || !validSize(sb.LengthSize) {
		return fmt.Errorf("%w: offset size %d, length size %d", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}
	return nil
}

// readV0 decodes versions 0 and 1. Version 1 adds the indexed storage K
// and two reserved bytes before the addresses.
func readV0(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	// free-space version, root entry version, reserved, shared header
	// version, offset size, length size, reserved, leaf K, internal K,
	// consistency flags
	fixed := make([]byte, 16)
	if _, err := r.ReadAt(fixed, off+9); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		Version:            version,
		OffsetSize:         fixed[4],
		LengthSize:         fixed[5],
		GroupLeafNodeK:     binary.LittleEndian.Uint16(fixed[7:]),
		GroupInternalNodeK: binary.LittleEndian.Uint16(fixed[9:]),
	}

	at := off + 24
	if version == 1 {
		k := make([]byte, 2)
		if _, err := r.ReadAt(k, at); err != nil {
			return nil, fmt.Errorf("reading superblock: %w", err)
		}
		sb.IndexedStorageK = binary.LittleEndian.Uint16(k)
		at += 4
	}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}
	br := binpkg.NewReader(r, sb.ReaderConfig()).At(at)

	// base, free-space info, eof, driver info
	var (
		addrs [4]uint64
		err   error
	)
	for i := range addrs {
		if addrs[i], err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("reading superblock: %w", err)
		}
	}
	sb.BaseAddress, sb.EOFAddress = addrs[0], addrs[2]

	// Root group symbol table entry: name offset, header address, cache
	// type, reserved, scratch pad.
	br.Skip(int64(sb.OffsetSize))
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, fmt.Errorf("reading root group entry: %w", err)
	}
	cache, err := br.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading root group entry: %w", err)
	}
	br.Skip(4)
	if cache == 1 {
		if sb.RootGroupBTreeAddress, err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("reading root group entry: %w", err)
		}
		if sb.RootGroupLocalHeapAddress, err = br.ReadOffset(); err != nil {
			return nil, fmt.Errorf("reading root group entry: %w", err)
		}
	}
	return sb, nil
}

func readV2(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	fixed := make([]byte, 3)
	if _, err := r.ReadAt(fixed, off+9); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		Version:    version,
		OffsetSize: fixed[0],
		LengthSize: fixed[1],
		Flags:      fixed[2],
	}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}

	raw := make([]byte, sb.Size())
	if _, err := r.ReadAt(raw, off); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	body := raw[:len(raw)-4]
	if binary.LittleEndian.Uint32(raw[len(body):]) != binpkg.Lookup3Checksum(body) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	br := binpkg.NewReader(bytes.NewReader(body), sb.ReaderConfig()).At(12)
	for _, dst := range []*uint64{&sb.BaseAddress, &sb.ExtensionAddress, &sb.EOFAddress, &sb.RootGroupAddress} {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return sb, nil
}

// Write encodes sb as a version 2 or 3 superblock at the position of w.
// A zero extension address is written as undefined.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	var buf memFile
	bw := binpkg.NewWriter(&buf, binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	})

	ext := sb.ExtensionAddress
	if ext == 0 {
		ext = bw.UndefinedOffset()
	}
	if err := bw.WriteBytes(Signature); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{max(sb.Version, 2), sb.OffsetSize, sb.LengthSize, sb.Flags}); err != nil {
		return err
	}
	for _, addr := range []uint64{sb.BaseAddress, ext, sb.EOFAddress, sb.RootGroupAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return err
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf)); err != nil {
		return err
	}
	return w.WriteBytes(buf)
}

type memFile []byte

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(*m) {
		*m = append(*m, make([]byte, end-len(*m))...)
	}
	return copy((*m)[off:], p), nil
}
