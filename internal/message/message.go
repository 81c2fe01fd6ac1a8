package message

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// Type is the 16-bit header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTime            Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTimeOld         Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

var typeNames = map[Type]string{
	TypeNIL:                      "nil",
	TypeDataspace:                "dataspace",
	TypeLinkInfo:                 "link info",
	TypeDatatype:                 "datatype",
	TypeFillValueOld:             "fill value (old)",
	TypeFillValue:                "fill value",
	TypeLink:                     "link",
	TypeExternalDataFiles:        "external data files",
	TypeDataLayout:               "layout",
	TypeBogus:                    "bogus",
	TypeGroupInfo:                "group info",
	TypeFilterPipeline:           "filter pipeline",
	TypeAttribute:                "attribute",
	TypeObjectComment:            "comment",
	TypeObjectModTime:            "modification time",
	TypeSharedMessageTable:       "shared message table",
	TypeObjectHeaderContinuation: "continuation",
	TypeSymbolTable:              "symbol table",
	TypeObjectModTimeOld:         "modification time (old)",
	TypeBTreeKValues:             "b-tree k values",
	TypeDriverInfo:               "driver info",
	TypeAttributeInfo:            "attribute info",
	TypeObjectRefCount:           "reference count",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type 0x%04x", uint16(t))
}

type Message interface {
	Type() Type
}

type parser func(data []byte, r *binary.Reader) (Message, error)

func wrap[M Message](p func([]byte, *binary.Reader) (M, error)) parser {
	return func(data []byte, r *binary.Reader) (Message, error) {
		m, err := p(data, r)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

var parsers = map[Type]parser{
	TypeDataspace:                wrap(parseDataspace),
	TypeLinkInfo:                 wrap(parseLinkInfo),
	TypeDatatype:                 wrap(parseDatatype),
	TypeFillValue:                wrap(parseFillValue),
	TypeLink:                     wrap(parseLink),
	TypeDataLayout:               wrap(parseDataLayout),
	TypeGroupInfo:                wrap(parseGroupInfo),
	TypeFilterPipeline:           wrap(parseFilterPipeline),
	TypeAttribute:                wrap(parseAttribute),
	TypeObjectHeaderContinuation: wrap(ParseContinuation),
	TypeSymbolTable:              wrap(parseSymbolTable),
	TypeAttributeInfo:            wrap(parseAttributeInfo),
}

// Parse decodes one message body. Types without a decoder come back as
// *Unknown. flags are the header message flags; a shared message
// (bit 1) is stored elsewhere and is never decoded in place.
func Parse(typ Type, data []byte, flags uint8, r *binary.Reader) (Message, error) {
	p, ok := parsers[typ]
	if !ok {
		return &Unknown{typ: typ, data: data}, nil
	}
	if flags&0x02 != 0 {
		return nil, fmt.Errorf("shared %s message", typ)
	}
	return p(data, r)
}

// ParseOrMalformed keeps a body that fails to decode as *Malformed so
// one bad message does not hide its siblings.
func ParseOrMalformed(typ Type, data []byte, flags uint8, r *binary.Reader) Message {
	msg, err := Parse(typ, data, flags, r)
	if err != nil {
		return &Malformed{MsgType: typ, Err: err, Data: data}
	}
	return msg
}

type Malformed struct {
	MsgType Type
	Err     error
	Data    []byte
}

func (m *Malformed) Type() Type        { return m.MsgType }
func (m *Malformed) encode(e *encoder) { e.bytes(m.Data) }

type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type        { return m.typ }
func (m *Unknown) Data() []byte      { return m.data }
func (m *Unknown) encode(e *encoder) { e.bytes(m.data) }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func (m *Continuation) encode(e *encoder) {
	e.offset(m.Offset)
	e.length(m.Length)
}

func ParseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	d := newDecoder(data, r)
	c := &Continuation{Offset: d.offset(), Length: d.length()}
	if d.err != nil {
		return nil, fmt.Errorf("continuation: %w", d.err)
	}
	return c, nil
}
