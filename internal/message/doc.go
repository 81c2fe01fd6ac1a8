// Package message decodes and encodes the messages stored in HDF5 object
// headers.
//
// [Parse] turns a message body into a typed value: [Dataspace],
// [Datatype], [DataLayout], [FilterPipeline], [FillValue], [Attribute],
// [Link], [LinkInfo], [GroupInfo], [AttributeInfo], [SymbolTable] or
// [Continuation]. Other types come back as [Unknown] with the raw body,
// and bodies that fail to decode can be kept as [Malformed] with
// [ParseOrMalformed].
//
// Decoding follows the sizes and byte order of a binary.Reader. Encoding
// always writes little-endian and the newest message version the package
// knows, using the offset and length sizes of a binary.Writer:
//
//	n := message.SerializedSize(msg, w)
//	err := message.Serialize(msg, w)
package message
