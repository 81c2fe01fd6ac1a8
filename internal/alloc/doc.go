// Package alloc hands out file space to the HDF5 writer.
//
// Space is append-only. The writer never grows an object header in
// place: it writes a new header at the end of the file and releases the
// old block. Released blocks are counted so tests and tools can see how
// much of a file is dead space, but they are never reused.
package alloc
