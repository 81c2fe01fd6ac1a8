package tree

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/robert-malhotra/h5view/hdf5"
)

// Source supplies the bytes of an HDF5 file. A tree keeps its source so
// datasets can be reloaded later; it never keeps an open file.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Open returns a fresh file handle. The caller closes it.
	Open() (*hdf5.File, error)

	// Reader returns the raw file contents for hashing.
	Reader() (io.ReadCloser, error)
}

// FileSource reads from a path on disk.
func FileSource(path string) Source { return fileSource(path) }

type fileSource string

func (s fileSource) Name() string                   { return string(s) }
func (s fileSource) Open() (*hdf5.File, error)      { return hdf5.Open(string(s)) }
func (s fileSource) Reader() (io.ReadCloser, error) { return os.Open(string(s)) }

// BytesSource reads from an in-memory copy of a file, e.g. an upload.
func BytesSource(name string, b []byte) Source {
	return &bytesSource{name: name, data: b}
}

type bytesSource struct {
	name string
	data []byte
}

func (s *bytesSource) Name() string              { return s.name }
func (s *bytesSource) Open() (*hdf5.File, error) { return hdf5.OpenBytes(s.name, s.data) }
func (s *bytesSource) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// ReaderSource reads through r. r must stay valid for the life of the
// tree.
func ReaderSource(name string, r io.ReaderAt) Source {
	return &readerSource{name: name, r: r}
}

type readerSource struct {
	name string
	r    io.ReaderAt
}

func (s *readerSource) Name() string              { return s.name }
func (s *readerSource) Open() (*hdf5.File, error) { return hdf5.OpenReaderAt(s.r, s.name) }
func (s *readerSource) Reader() (io.ReadCloser, error) {
	return io.NopCloser(io.NewSectionReader(s.r, 0, math.MaxInt64)), nil
}

// Fingerprint hashes the full contents of src. Row stores key persisted
// tables by it so edits to a file never serve stale rows.
func Fingerprint(src Source) (uint64, error) {
	rc, err := src.Reader()
	if err != nil {
		return 0, fmt.Errorf("fingerprint %s: %w", src.Name(), err)
	}
	defer rc.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, rc); err != nil {
		return 0, fmt.Errorf("fingerprint %s: %w", src.Name(), err)
	}
	return d.Sum64(), nil
}
