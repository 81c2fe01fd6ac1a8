package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Filter identifiers registered with the HDF Group.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
	FilterZstd        uint16 = 32015
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports a filter that may be skipped when it fails.
func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline lists the filters applied to each chunk, in write order
// (type 0x000B).
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// HasCompression reports a deflate, SZIP or zstd stage.
func (m *FilterPipeline) HasCompression() bool {
	return m.HasFilter(FilterDeflate) || m.HasFilter(FilterSZIP) || m.HasFilter(FilterZstd)
}

// NewFilterPipeline returns a version 2 pipeline.
func NewFilterPipeline(filters ...FilterInfo) *FilterPipeline {
	return &FilterPipeline{Version: 2, Filters: filters}
}

func parseFilterPipeline(data []byte, r *binpkg.Reader) (*FilterPipeline, error) {
	d := newDecoder(data, r)
	fp := &FilterPipeline{Version: d.u8()}
	n := int(d.u8())
	switch fp.Version {
	case 1:
		d.skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("filter pipeline version %d", fp.Version)
	}

	fp.Filters = make([]FilterInfo, n)
	for i := range fp.Filters {
		fp.Filters[i] = decodeFilter(d, fp.Version)
		if d.err != nil {
			return nil, fmt.Errorf("filter pipeline: filter %d: %w", i, d.err)
		}
	}
	return fp, nil
}

// decodeFilter reads one filter description. Version 2 omits the name
// length for the predefined filters and drops all padding.
func decodeFilter(d *decoder, version uint8) FilterInfo {
	f := FilterInfo{ID: d.u16()}
	var nameLen int
	if version == 1 || f.ID >= 256 {
		nameLen = int(d.u16())
	}
	f.Flags = d.u16()
	n := int(d.u16())

	if nameLen > 0 {
		name := d.bytes(nameLen)
		for i, c := range name {
			if c == 0 {
				name = name[:i]
				break
			}
		}
		f.Name = string(name)
		if version == 1 {
			d.skip((8 - nameLen%8) % 8)
		}
	}

	f.ClientData = make([]uint32, n)
	for i := range f.ClientData {
		f.ClientData[i] = d.u32()
	}
	if version == 1 && n%2 != 0 {
		d.skip(4)
	}
	return f
}

// encode writes version 2. Names are kept only for filters outside the
// predefined range.
func (m *FilterPipeline) encode(e *encoder) {
	e.u8(2)
	e.u8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		e.u16(f.ID)
		if f.ID >= 256 {
			if f.Name == "" {
				e.u16(0)
			} else {
				e.u16(uint16(len(f.Name) + 1))
			}
		}
		e.u16(f.Flags)
		e.u16(uint16(len(f.ClientData)))
		if f.ID >= 256 && f.Name != "" {
			e.cstring(f.Name)
		}
		for _, v := range f.ClientData {
			e.u32(v)
		}
	}
}
