package tree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/value"
)

// ErrorAttribute names the single entry produced when an object's
// attributes cannot be enumerated at all.
const ErrorAttribute = "_error"

// AttributeSource is anything that can list HDF5 attributes:
// *hdf5.Object, *hdf5.Group and *hdf5.Dataset.
type AttributeSource interface {
	Attributes() ([]*hdf5.Attribute, error)
}

// ReadAttributes decodes the attributes of obj in storage order.
//
// A one-element attribute becomes that element. Longer ones are joined
// with ", " into a string. An attribute that cannot be decoded is kept
// under its name as an error value, and a failed enumeration yields a
// single ErrorAttribute entry.
func ReadAttributes(obj AttributeSource) []Attribute {
	attrs, err := obj.Attributes()
	if err != nil {
		return []Attribute{{
			Name:  ErrorAttribute,
			Value: value.OfError(fmt.Errorf("%w: %w", ErrAttributeRead, err)),
		}}
	}

	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, Attribute{Name: a.Name(), Value: readAttribute(a)})
	}
	return out
}

func readAttribute(a *hdf5.Attribute) value.Value {
	arr, err := a.Read()
	if err != nil {
		return value.OfError(fmt.Errorf("%w: %w", ErrAttributeRead, err))
	}
	return Summarize(arr)
}

// Summarize reduces an array to one display value.
func Summarize(arr *value.Array) value.Value {
	switch arr.Len() {
	case 0:
		return value.OfString("")
	case 1:
		return arr.Index(0)
	}
	return value.OfString(arr.Join(", "))
}
