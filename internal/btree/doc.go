// Package btree walks the B-trees HDF5 uses to index group members,
// attributes and dataset chunks.
//
// Version 1 trees ("TREE" nodes) index the symbol table nodes of
// old-style groups and the chunks of layout v1-v3 datasets. Version 2
// trees ("BTHD" header with "BTIN"/"BTLF" nodes) index the chunks of
// layout v4 datasets and the densely stored links and attributes of
// new-style objects. Only reading is supported; the writer never emits
// B-trees.
package btree
