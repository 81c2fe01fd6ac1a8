// Package layout reads and writes the raw elements of HDF5 datasets.
//
// A data layout message puts a dataset in one of three storage classes:
//
//   - [Compact]: the elements live inside the layout message itself.
//   - [Contiguous]: the elements fill one block of the file.
//   - [Chunked]: the elements are cut into equally sized chunks, each
//     stored (and optionally filtered) on its own and found through an
//     index.
//
// [New] picks the reader for a message; [Layout.Read] always returns the
// whole dataset in row-major order.
//
// Version 4 layouts name their chunk index: a single chunk, implicit
// (chunks back to back), a fixed array, an extensible array or a version 2
// B-tree. Older layouts always use a version 1 B-tree. Chunks missing from
// the index read as zeros, and edge chunks that overhang the dataset are
// clipped.
//
// [ChunkWriter] does the reverse for new datasets: it pads and filters
// chunks and indexes them with an unpaged fixed array.
package layout
