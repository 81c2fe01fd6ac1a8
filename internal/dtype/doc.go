// Package dtype bridges parsed HDF5 datatype messages and the host value
// model.
//
// # Type Mapping
//
// [Describe] reduces a message.Datatype to a value.Descriptor and
// [TypeOf] runs it through value.Map:
//
//	HDF5 Class        | Kind
//	------------------|------------------------------------------
//	Fixed-point (int) | Int8..Int64 or Uint8..Uint64 by size and sign
//	Floating-point    | Float32 (4 bytes) or Float64 (8 bytes)
//	String (fixed)    | String, padding trimmed
//	String (varlen)   | String, via global heap lookup
//	Bitfield          | Bool
//	Enum              | kind of the base integer type
//	Array             | kind of the element type, dims appended
//	Compound, other   | Unsupported
//
// # Reading Data
//
//	arr, err := dtype.Decode(datatype, rawBytes, dims, reader)
//
// The reader is only consulted for variable-length strings.
//
// # Writing Data
//
// [Encode] serializes a value.Array and picks the datatype for it:
//
//	dt, raw, err := dtype.Encode(value.Vector([]int32{1, 2, 3}))
//
// Variable-length strings are written by the caller into a global heap;
// [EncodeVarLenRefs] builds the per-element references.
package dtype
