// Package object reads and writes HDF5 object headers.
//
// Every group, dataset and committed datatype has an object header: a
// list of messages spread over a first chunk and any continuation
// blocks. [Read] accepts version 1 headers and version 2 "OHDR" headers,
// checks version 2 checksums, follows continuations and returns the
// messages in one [Header]. Bodies that do not decode are kept as
// message.Malformed; the typed accessors skip them and
// [Header.AllMessages] returns them.
//
// [Encode] builds a single-chunk version 2 header, and the New*Header
// helpers return the messages the HDF5 library expects for groups and
// datasets.
package object
