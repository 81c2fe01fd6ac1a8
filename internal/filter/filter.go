// Package filter encodes and decodes chunk data through the stages of a
// filter pipeline message. Stages run in message order when writing and
// in reverse when reading; bit i of a chunk's filter mask marks stage i as
// not applied to that chunk.
package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
)

// ErrUnavailable is returned for a stage this package cannot run.
var ErrUnavailable = errors.New("filter not available")

// Filter is one pipeline stage.
type Filter interface {
	ID() uint16
	Decode(in []byte) ([]byte, error)
	Encode(in []byte) ([]byte, error)
}

type codec struct {
	name string
	make func(clientData []uint32) Filter
}

// Registered filters. Entries without make are recognized by name only.
var codecs = map[uint16]codec{
	message.FilterDeflate:     {"deflate", newDeflate},
	message.FilterShuffle:     {"shuffle", newShuffle},
	message.FilterFletcher32:  {"fletcher32", newFletcher32},
	message.FilterSZIP:        {name: "szip"},
	message.FilterNBit:        {name: "nbit"},
	message.FilterScaleOffset: {name: "scaleoffset"},
	message.FilterZstd:        {"zstd", newZstd},
}

// Name is the conventional name of a filter ID, falling back to the name
// stored in the pipeline message.
func Name(info message.FilterInfo) string {
	if c, ok := codecs[info.ID]; ok {
		return c.name
	}
	if info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("filter %d", info.ID)
}

// New returns the stage for info, or an error wrapping ErrUnavailable.
func New(info message.FilterInfo) (Filter, error) {
	c, ok := codecs[info.ID]
	if !ok || c.make == nil {
		return nil, fmt.Errorf("%w: %s (ID %d)", ErrUnavailable, Name(info), info.ID)
	}
	return c.make(info.ClientData), nil
}
