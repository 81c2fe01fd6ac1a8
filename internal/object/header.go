package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

var (
	signatureV2  = []byte("OHDR")
	signatureCnt = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksum           = errors.New("object header checksum mismatch")
)

// Header is a decoded object header. Messages keeps header order, with
// the messages of continuation blocks following those of the block
// that points at them.
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8
	RefCount uint32
	Messages []message.Message

	// Set only for version 2 headers that store times.
	AccessTime uint32
	ModTime    uint32
	ChangeTime uint32
	BirthTime  uint32
}

// Read decodes the object header at address. Messages whose body does
// not decode are kept as *message.Malformed.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", address, err)
	}

	var hd *headerReader
	switch {
	case bytes.Equal(peek, signatureV2):
		hd, err = readPrefixV2(hr, address)
	case peek[0] == 1:
		hd, err = readPrefixV1(hr, address)
	default:
		err = fmt.Errorf("%w: no version 1 or 2 header at %#x", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, err
	}
	if err := hd.run(); err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", address, err)
	}
	return hd.h, nil
}

// GetMessage returns the first well-formed message of typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if _, bad := msg.(*message.Malformed); !bad && msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns the well-formed messages of typ.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if _, bad := msg.(*message.Malformed); !bad && msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

// AllMessages is GetMessages including *message.Malformed entries.
func (h *Header) AllMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (h *Header) HasMessage(typ message.Type) bool {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return true
		}
	}
	return false
}

func first[M message.Message](h *Header, typ message.Type) M {
	m, _ := h.GetMessage(typ).(M)
	return m
}

func (h *Header) Dataspace() *message.Dataspace {
	return first[*message.Dataspace](h, message.TypeDataspace)
}

func (h *Header) Datatype() *message.Datatype {
	return first[*message.Datatype](h, message.TypeDatatype)
}

func (h *Header) DataLayout() *message.DataLayout {
	return first[*message.DataLayout](h, message.TypeDataLayout)
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	return first[*message.FilterPipeline](h, message.TypeFilterPipeline)
}

func (h *Header) FillValue() *message.FillValue {
	return first[*message.FillValue](h, message.TypeFillValue)
}
