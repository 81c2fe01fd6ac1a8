package tree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/value"
)

// Materialize loads the full contents of ds as a row-major array with the
// given shape and type. On failure it returns an empty array of the
// declared kind together with the error, so the caller can record the
// diagnostic and keep going.
func Materialize(ds *hdf5.Dataset, dims []uint64, t value.Type) (*value.Array, error) {
	if len(dims) > MaxRank {
		return value.Empty(t.Kind), fmt.Errorf("%w: %s has rank %d", ErrUnsupportedRank, ds.Path(), len(dims))
	}
	if !t.Kind.IsData() {
		return value.Empty(value.Unsupported), fmt.Errorf("%w: %s is %s", value.ErrUnsupportedType, ds.Path(), t)
	}

	arr, err := ds.ReadArray()
	if err != nil {
		return value.Empty(t.Kind), err
	}
	// Array element types add dimensions of their own.
	if arr.Rank() > MaxRank {
		return value.Empty(t.Kind), fmt.Errorf("%w: %s has rank %d with array elements", ErrUnsupportedRank, ds.Path(), arr.Rank())
	}
	if arr.Kind() != t.Kind {
		return value.Empty(t.Kind), fmt.Errorf("%s decoded as %s, declared %s", ds.Path(), arr.Kind(), t.Kind)
	}
	return arr, nil
}

// Materialize loads the dataset at path if it is not loaded yet. It
// reopens the tree's source for the read and closes it before returning.
// A failed load is also recorded as the dataset's Diagnostic.
func (t *Tree) Materialize(path string) error {
	n, ok := t.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if n.Type != Dataset || n.Dataset == nil {
		return fmt.Errorf("%w: %s", ErrNotDataset, path)
	}
	if n.Dataset.IsDataLoaded() {
		return nil
	}

	f, err := t.src.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCannotOpenFile, t.src.Name(), err)
	}
	defer f.Close()

	ds, err := f.OpenDataset(path)
	if err != nil {
		n.Dataset.Diagnostic = err
		return err
	}
	arr, err := Materialize(ds, n.Dataset.Dimensions, n.Dataset.Type)
	n.Dataset.Data = arr
	n.Dataset.Diagnostic = err
	return err
}
