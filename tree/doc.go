// Package tree ingests an HDF5 file into an in-memory node tree.
//
// [Build] opens a [Source], walks the hierarchy depth-first in pre-order
// and records every group, dataset and other object as a [Node] in an
// arena owned by the returned [Tree]. Attributes are decoded into
// display values, datasets are materialized into typed row-major arrays,
// and the file is closed before Build returns.
//
//	t, err := tree.Build(tree.FileSource("sample.h5"))
//	if err != nil {
//	    return err
//	}
//	n, _ := t.Lookup("/Group2/Dataset2")
//	m, _ := value.Matrix[float64](n.Dataset.Data)
//
// Failures below the root never abort a build. A child that cannot be
// opened becomes an Other node carrying Err; a dataset that cannot be
// decoded keeps its shape and type and records a Diagnostic; an
// attribute that cannot be read is stored as an error value.
package tree
