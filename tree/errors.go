package tree

import "errors"

var (
	// ErrCannotOpenFile is returned by Build when the source or its root
	// group cannot be opened.
	ErrCannotOpenFile = errors.New("cannot open file")

	// ErrUnsupportedRank marks datasets with more than MaxRank dimensions.
	ErrUnsupportedRank = errors.New("unsupported rank")

	// ErrAttributeRead wraps attribute decode and enumeration failures.
	ErrAttributeRead = errors.New("attribute read failed")

	ErrNotFound   = errors.New("node not found")
	ErrNotDataset = errors.New("node is not a dataset")
)

// MaxRank is the highest dataset rank the materializer loads.
const MaxRank = 3
