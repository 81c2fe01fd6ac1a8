package hdf5

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/h5view/internal/alloc"
	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/superblock"
	"github.com/robert-malhotra/h5view/value"
)

// File is an open HDF5 image. Files from Open and the in-memory openers
// are read-only; Create returns a writable one.
type File struct {
	name       string
	closer     io.Closer
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	writable  bool
	osFile    *os.File
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Open opens the file at path read-only.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := newFile(osFile, path)
	if err != nil {
		osFile.Close()
		return nil, err
	}
	f.closer = osFile
	return f, nil
}

// OpenReaderAt opens the image served by r. name only labels errors and
// paths; Close leaves r open.
func OpenReaderAt(r io.ReaderAt, name string) (*File, error) {
	return newFile(r, name)
}

func OpenBytes(name string, b []byte) (*File, error) {
	return newFile(bytes.NewReader(b), name)
}

func newFile(r io.ReaderAt, name string) (*File, error) {
	sb, err := superblock.Read(r)
	switch {
	case errors.Is(err, superblock.ErrNotHDF5):
		return nil, fmt.Errorf("%w: %s", ErrNotHDF5, name)
	case err != nil:
		return nil, fmt.Errorf("%s: superblock: %w", name, err)
	}

	f := &File{
		name:       name,
		reader:     binary.NewReader(r, sb.ReaderConfig()),
		superblock: sb,
	}
	f.root = &Group{file: f, path: "/", addr: sb.RootGroupAddress}
	if err := f.root.ensureHeader(); err != nil {
		return nil, fmt.Errorf("%s: root group: %w", name, err)
	}
	return f, nil
}

// Close releases the file. A writable file is flushed first. Closing
// twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if !f.writable {
		if f.closer == nil {
			return nil
		}
		return f.closer.Close()
	}
	err := f.Flush()
	if cerr := f.osFile.Close(); err == nil {
		err = cerr
	}
	return err
}

func (f *File) Root() *Group { return f.root }
func (f *File) Name() string { return f.name }

// Version is the superblock version.
func (f *File) Version() int    { return int(f.superblock.Version) }
func (f *File) OffsetSize() int { return int(f.superblock.OffsetSize) }
func (f *File) LengthSize() int { return int(f.superblock.LengthSize) }

func (f *File) checkOpen() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

// Object resolves an absolute path, following soft links.
func (f *File) Object(path string) (*Object, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	return f.resolve(path, map[string]bool{})
}

func (f *File) OpenGroup(path string) (*Group, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	return f.root.OpenGroup(path)
}

func (f *File) OpenDataset(path string) (*Dataset, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	return f.root.OpenDataset(path)
}

// GetAttr returns the attribute named by an attribute path such as
// "/run/x@units".
func (f *File) GetAttr(attrPath string) (*Attribute, error) {
	objPath, name, err := ParseAttrPath(attrPath)
	if err != nil {
		return nil, err
	}
	obj, err := f.Object(objPath)
	if err != nil {
		return nil, err
	}
	return obj.Attr(name)
}

// ReadAttr reads the attribute named by an attribute path.
func (f *File) ReadAttr(attrPath string) (*value.Array, error) {
	a, err := f.GetAttr(attrPath)
	if err != nil {
		return nil, err
	}
	return a.Read()
}

// resolve walks absPath from the root. visited holds the soft link
// targets seen so far, so cycles fail instead of recursing.
func (f *File) resolve(absPath string, visited map[string]bool) (*Object, error) {
	cur := f.root.object()
	for _, name := range SplitPath(absPath) {
		g, err := cur.Group()
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", cur.path, absPath, err)
		}
		if cur, err = g.child(name, visited); err != nil {
			return nil, err
		}
	}
	return cur, nil
}
