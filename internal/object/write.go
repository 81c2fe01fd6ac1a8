package object

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// MinGroupChunkSize is the message area h5py reserves for a group, so
// links can be added in place by other writers.
const MinGroupChunkSize = 120

// v2 message prefix: type, size and flags.
const messagePrefix = 4

// Encode returns a version 2 object header holding msgs in one chunk.
// The message area is padded to minChunk bytes. Every message must be
// message.Serializable and its body must fit the 16-bit size field.
func Encode(w *binary.Writer, msgs []message.Message, minChunk int) ([]byte, error) {
	var area []byte
	for _, msg := range msgs {
		s, ok := msg.(message.Serializable)
		if !ok {
			return nil, fmt.Errorf("%w: %s message cannot be written", ErrInvalidHeader, msg.Type())
		}
		body := message.Encode(s, w)
		if len(body) > 0xFFFF {
			return nil, fmt.Errorf("%w: %s message of %d bytes", ErrInvalidHeader, msg.Type(), len(body))
		}
		area = append(area, uint8(msg.Type()), byte(len(body)), byte(len(body)>>8), 0)
		area = append(area, body...)
	}
	if pad := minChunk - len(area); pad >= messagePrefix {
		n := pad - messagePrefix
		area = append(area, uint8(message.TypeNIL), byte(n), byte(n>>8), 0)
		area = append(area, make([]byte, n)...)
	} else if pad > 0 {
		area = append(area, make([]byte, pad)...)
	}

	width := sizeWidth(uint64(len(area)))
	out := make([]byte, 0, 6+width+len(area)+4)
	out = append(out, signatureV2...)
	out = append(out, 2, uint8(bits.TrailingZeros(uint(width))))
	for i := range width {
		out = append(out, byte(len(area)>>(8*i)))
	}
	out = append(out, area...)
	sum := binary.Lookup3Checksum(out)
	return append(out, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24)), nil
}

// sizeWidth is the narrowest of 1, 2, 4 or 8 bytes that holds n.
func sizeWidth(n uint64) int {
	switch {
	case n <= 0xFF:
		return 1
	case n <= 0xFFFF:
		return 2
	case n <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

// NewEmptyGroupHeader returns the messages of a new-style group with no
// members.
func NewEmptyGroupHeader() []message.Message {
	return []message.Message{message.NewLinkInfo(), message.NewGroupInfo()}
}

// NewGroupHeader returns the messages of a new-style group holding links.
func NewGroupHeader(links []*message.Link) []message.Message {
	msgs := NewEmptyGroupHeader()
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetHeader returns the messages of a dataset. pipeline may be nil.
func NewDatasetHeader(space *message.Dataspace, dt *message.Datatype, layout *message.DataLayout, pipeline *message.FilterPipeline) []message.Message {
	msgs := []message.Message{space, dt, message.NewFillValue(nil), layout}
	if pipeline != nil {
		msgs = append(msgs, pipeline)
	}
	return msgs
}
