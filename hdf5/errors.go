// Package hdf5 reads HDF5 files into typed values and writes the small
// files used as fixtures and samples.
package hdf5

import "errors"

// Common errors
var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
	ErrReadOnly    = errors.New("file is not writable")
	ErrExists      = errors.New("name already exists")
)

// MaxLinkDepth is the maximum number of soft links that can be followed
// in a single path resolution.
const MaxLinkDepth = 100
