// Package superblock reads and writes the HDF5 superblock, the block at
// the start of a file that fixes the width of addresses and lengths and
// points at the root group.
//
// [Read] looks for the signature at offsets 0, 512, 1024 and 2048 and
// understands versions 0 through 3. Versions 0 and 1 reach the root group
// through a symbol table entry whose scratch pad may also name the root
// B-tree and local heap; versions 2 and 3 store the root object header
// address directly and are protected by a lookup3 checksum.
//
// [Superblock.Write] always emits version 2 or 3.
package superblock
