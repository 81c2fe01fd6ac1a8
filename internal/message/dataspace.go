package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// DataspaceType distinguishes scalar, simple and null dataspaces.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace gives the shape of a dataset or attribute (type 0x0001).
type Dataspace struct {
	Version    uint8
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64

	// MaxDims is nil when the dataspace cannot grow.
	MaxDims []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements is the product of the dimensions: 1 for a scalar, 0 for a
// null dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }
func (m *Dataspace) IsNull() bool   { return m.SpaceType == DataspaceNull }

// NewDataspace returns a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Version: 2, Rank: len(dims), SpaceType: DataspaceSimple, Dimensions: dims, MaxDims: maxDims}
}

func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}

func NewNullDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceNull}
}

func parseDataspace(data []byte, r *binpkg.Reader) (*Dataspace, error) {
	d := newDecoder(data, r)
	ds := &Dataspace{Version: d.u8(), Rank: int(d.u8())}
	flags := d.u8()

	switch ds.Version {
	case 1:
		// Version 1 has no type byte; rank 0 means scalar.
		d.skip(5)
		ds.SpaceType = DataspaceSimple
		if ds.Rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	case 2:
		ds.SpaceType = DataspaceType(d.u8())
	default:
		return nil, fmt.Errorf("dataspace version %d", ds.Version)
	}

	if ds.SpaceType == DataspaceSimple && ds.Rank > 0 {
		ds.Dimensions = make([]uint64, ds.Rank)
		for i := range ds.Dimensions {
			ds.Dimensions[i] = d.length()
		}
		if flags&1 != 0 {
			ds.MaxDims = make([]uint64, ds.Rank)
			for i := range ds.MaxDims {
				ds.MaxDims[i] = d.length()
			}
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("dataspace: %w", d.err)
	}
	return ds, nil
}

// encode always writes version 2.
func (m *Dataspace) encode(e *encoder) {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 1
	}
	e.u8(2)
	e.u8(uint8(m.Rank))
	e.u8(flags)
	e.u8(uint8(m.SpaceType))
	for _, d := range m.Dimensions {
		e.length(d)
	}
	if flags != 0 {
		for _, d := range m.MaxDims {
			e.length(d)
		}
	}
}
