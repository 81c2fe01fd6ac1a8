package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/value"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
// An attribute whose message could not be parsed keeps its position and
// reports the failure through Err and Read.
type Attribute struct {
	name   string
	msg    *message.Attribute
	err    error
	reader *binary.Reader // for resolving global heap references
}

// attributesOf collects the attributes of a header: compact ones in
// header order, dense ones in creation or name order.
func attributesOf(h *object.Header, r *binary.Reader) ([]*Attribute, error) {
	msgs := h.AllMessages(message.TypeAttribute)
	if ai, ok := h.GetMessage(message.TypeAttributeInfo).(*message.AttributeInfo); ok && ai.IsDense() {
		dense, err := denseMessages(r, message.TypeAttribute, ai.FractalHeapAddr, ai)
		if err != nil {
			return nil, fmt.Errorf("dense attributes: %w", err)
		}
		msgs = append(msgs, dense...)
	}

	attrs := make([]*Attribute, 0, len(msgs))
	for i, msg := range msgs {
		switch m := msg.(type) {
		case *message.Attribute:
			attrs = append(attrs, &Attribute{name: m.Name, msg: m, reader: r})
		case *message.Malformed:
			attrs = append(attrs, &Attribute{
				name: fmt.Sprintf("attribute#%d", i),
				err:  fmt.Errorf("malformed attribute message: %w", m.Err),
			})
		}
	}
	return attrs, nil
}

func findAttr(attrs []*Attribute, name, objectPath string) (*Attribute, error) {
	for _, a := range attrs {
		if a.name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: attribute %s", ErrNotFound, JoinAttrPath(objectPath, name))
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.name
}

// Err returns the parse error of a malformed attribute.
func (a *Attribute) Err() error {
	return a.err
}

// Dims returns the dimensions of the attribute value, nil for a scalar.
func (a *Attribute) Dims() []uint64 {
	if a.msg == nil || a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return nil
	}
	if a.msg.Dataspace.IsNull() {
		return []uint64{0}
	}
	return a.msg.Dataspace.Dimensions
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	n := uint64(1)
	for _, d := range a.Dims() {
		n *= d
	}
	return n
}

// Datatype returns the raw datatype message, nil for a malformed attribute.
func (a *Attribute) Datatype() *message.Datatype {
	if a.msg == nil {
		return nil
	}
	return a.msg.Datatype
}

// Type maps the attribute's datatype. The returned Type is valid even when
// the mapping fails.
func (a *Attribute) Type() (value.Type, error) {
	if a.err != nil {
		return value.Type{Kind: value.Error}, a.err
	}
	return dtype.TypeOf(a.msg.Datatype)
}

// Read decodes the attribute value.
func (a *Attribute) Read() (*value.Array, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.msg.Datatype == nil {
		return nil, fmt.Errorf("attribute %q has no datatype", a.name)
	}
	arr, err := dtype.Decode(a.msg.Datatype, a.msg.Data, a.Dims(), a.reader)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.name, err)
	}
	return arr, nil
}
