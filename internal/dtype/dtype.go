package dtype

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/value"
)

// Describe extracts the mapper descriptor of dt. Enums are described by
// their base integer type and arrays by their element type.
func Describe(dt *message.Datatype) value.Descriptor {
	if dt == nil {
		return value.Descriptor{Class: value.ClassOpaque}
	}
	switch dt.Class {
	case message.ClassEnum, message.ClassArray:
		if dt.BaseType != nil {
			return Describe(dt.BaseType)
		}
	}
	return value.Descriptor{
		Class:        value.Class(dt.Class),
		Size:         int(dt.Size),
		Signed:       dt.Signed,
		VarLenString: dt.Class == message.ClassVarLen && dt.IsVarLenString,
	}
}

// TypeOf describes dt and maps it to a host kind.
func TypeOf(dt *message.Datatype) (value.Type, error) {
	return value.TypeOf(Describe(dt))
}

// ByteOrder returns the binary.ByteOrder for the datatype.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// elementShape returns the datatype that holds one scalar element and the
// extra dimensions contributed by an array datatype.
func elementShape(dt *message.Datatype) (*message.Datatype, []uint64, error) {
	switch dt.Class {
	case message.ClassArray:
		if dt.BaseType == nil {
			return nil, nil, fmt.Errorf("array type has no base type")
		}
		base, inner, err := elementShape(dt.BaseType)
		if err != nil {
			return nil, nil, err
		}
		extra := make([]uint64, 0, len(dt.ArrayDims)+len(inner))
		for _, d := range dt.ArrayDims {
			extra = append(extra, uint64(d))
		}
		return base, append(extra, inner...), nil
	case message.ClassEnum:
		if dt.BaseType == nil {
			return nil, nil, fmt.Errorf("enum type has no base type")
		}
		return dt.BaseType, nil, nil
	}
	return dt, nil, nil
}
