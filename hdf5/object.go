package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
)

// Kind classifies an object reachable from a group.
type Kind uint8

const (
	KindOther Kind = iota
	KindGroup
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindDataset:
		return "Dataset"
	}
	return "Other"
}

// Object is a resolved group member. Objects reached through external
// links or dangling soft links have no header and are always KindOther.
type Object struct {
	file   *File
	parent *Group
	name   string
	path   string
	kind   Kind
	header *object.Header
	addr   uint64
	note   string
}

// classify decides what an object header describes. A dataspace makes a
// dataset; any link storage message makes a group.
func classify(h *object.Header, isRoot bool) (Kind, string) {
	switch {
	case h.HasMessage(message.TypeDataspace):
		return KindDataset, ""
	case isRoot,
		h.HasMessage(message.TypeLink),
		h.HasMessage(message.TypeLinkInfo),
		h.HasMessage(message.TypeSymbolTable),
		h.HasMessage(message.TypeGroupInfo):
		return KindGroup, ""
	case h.HasMessage(message.TypeDatatype):
		return KindOther, "named datatype"
	}
	return KindOther, "unrecognized object"
}

// objectAt reads the header at addr and classifies it.
func (f *File) objectAt(addr uint64, name, path string, parent *Group) (*Object, error) {
	header, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", addr, err)
	}
	kind, note := classify(header, false)
	return &Object{
		file:   f,
		parent: parent,
		name:   name,
		path:   path,
		kind:   kind,
		header: header,
		addr:   addr,
		note:   note,
	}, nil
}

// Name returns the link name the object was reached through.
func (o *Object) Name() string { return o.name }

// Path returns the full path the object was reached through.
func (o *Object) Path() string { return o.path }

// Kind returns the object classification.
func (o *Object) Kind() Kind { return o.kind }

// Note explains a KindOther classification.
func (o *Object) Note() string { return o.note }

// Address returns the object header address, or 0 when there is none.
func (o *Object) Address() uint64 { return o.addr }

// HasHeader reports whether the object has an object header in this file.
func (o *Object) HasHeader() bool { return o.header != nil }

// HeaderVersion returns the object header version, or 0 when there is none.
func (o *Object) HeaderVersion() int {
	if o.header == nil {
		return 0
	}
	return int(o.header.Version)
}

// MessageTypes lists the header message types in header order.
func (o *Object) MessageTypes() []message.Type {
	if o.header == nil {
		return nil
	}
	types := make([]message.Type, len(o.header.Messages))
	for i, msg := range o.header.Messages {
		types[i] = msg.Type()
	}
	return types
}

// Group opens the object as a group.
func (o *Object) Group() (*Group, error) {
	if o.kind != KindGroup {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, o.path)
	}
	if o.path == "/" && o.parent == nil {
		return o.file.root, nil
	}
	return &Group{
		file:   o.file,
		parent: o.parent,
		path:   o.path,
		header: o.header,
		addr:   o.addr,
	}, nil
}

// Dataset opens the object as a dataset.
func (o *Object) Dataset() (*Dataset, error) {
	if o.kind != KindDataset {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, o.path)
	}
	return newDataset(o.file, o.path, o.header)
}

// Attributes returns the object's attributes in header order. Objects
// without a header have none.
func (o *Object) Attributes() ([]*Attribute, error) {
	if o.header == nil {
		return nil, nil
	}
	return attributesOf(o.header, o.file.reader)
}

// Attr returns the first attribute called name.
func (o *Object) Attr(name string) (*Attribute, error) {
	attrs, err := o.Attributes()
	if err != nil {
		return nil, err
	}
	return findAttr(attrs, name, o.path)
}
