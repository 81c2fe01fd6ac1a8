package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/value"
)

// CreateGroup creates a new subgroup with the given name.
//
// Object headers are never resized in place: every change rewrites the
// group header at a new address and relinks it in its parent, up to the
// superblock. Only handles obtained from this File see the new addresses.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkNewMember(name); err != nil {
		return nil, err
	}

	addr, err := g.file.writeHeader(object.NewEmptyGroupHeader(), 0)
	if err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}

	child := &Group{
		file:         g.file,
		parent:       g,
		path:         childPath(g.path, name),
		addr:         addr,
		loaded:       true,
		pendingLinks: []*message.Link{},
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}
	return child, nil
}

// CreateSoftLink adds a link called name that resolves target, an
// absolute path or one relative to g, when it is read.
func (g *Group) CreateSoftLink(name, target string) error {
	if err := g.checkNewMember(name); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: empty soft link target", ErrInvalidPath)
	}
	return g.addLink(message.NewSoftLink(name, target))
}

// CreateExternalLink adds a link called name to objectPath in another
// file. Readers report it as an object of KindOther.
func (g *Group) CreateExternalLink(name, file, objectPath string) error {
	if err := g.checkNewMember(name); err != nil {
		return err
	}
	return g.addLink(message.NewExternalLink(name, file, objectPath))
}

// SetAttr sets a scalar attribute on the group, replacing any attribute
// with the same name. Strings are stored as variable-length strings.
func (g *Group) SetAttr(name string, v value.Value) error {
	arr, err := scalarArray(v)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return g.SetAttrArray(name, arr)
}

// SetAttrArray sets an array-valued attribute on the group.
func (g *Group) SetAttrArray(name string, arr *value.Array) error {
	if !g.file.writable {
		return ErrReadOnly
	}
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	if err := g.load(); err != nil {
		return err
	}

	msg, err := g.file.attributeMessage(name, arr)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}

	replaced := false
	for i, a := range g.pendingAttrs {
		if a.Name == name {
			g.pendingAttrs[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		g.pendingAttrs = append(g.pendingAttrs, msg)
	}
	return g.rewriteHeader()
}

func (g *Group) checkNewMember(name string) error {
	if !g.file.writable {
		return ErrReadOnly
	}
	if name == "" || path.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("%w: bad member name %q", ErrInvalidPath, name)
	}
	if err := g.load(); err != nil {
		return err
	}
	for _, l := range g.pendingLinks {
		if l.Name == name {
			return fmt.Errorf("%w: %s", ErrExists, childPath(g.path, name))
		}
	}
	return nil
}

// load copies the links and attributes of the current header into the
// pending lists the writer rewrites from.
func (g *Group) load() error {
	if g.loaded {
		return nil
	}
	if err := g.ensureHeader(); err != nil {
		return fmt.Errorf("loading existing links: %w", err)
	}

	links, err := g.links()
	if err != nil {
		return fmt.Errorf("loading existing links: %w", err)
	}
	g.pendingLinks = append(g.pendingLinks[:0], links...)
	for _, msg := range g.header.GetMessages(message.TypeAttribute) {
		g.pendingAttrs = append(g.pendingAttrs, msg.(*message.Attribute))
	}
	g.loaded = true
	return nil
}

func (g *Group) addLink(link *message.Link) error {
	if err := g.load(); err != nil {
		return err
	}
	g.pendingLinks = append(g.pendingLinks, link)
	return g.rewriteHeader()
}

// maxCompactLinks is the HDF5 default link count above which a group
// stores its links in a fractal heap.
const maxCompactLinks = 8

// rewriteHeader writes the group header at a new address and points the
// parent (or the superblock) at it.
func (g *Group) rewriteHeader() error {
	msgs, err := g.linkStorage()
	if err != nil {
		return err
	}
	for _, a := range g.pendingAttrs {
		msgs = append(msgs, a)
	}

	addr, err := g.file.writeHeader(msgs, object.MinGroupChunkSize)
	if err != nil {
		return err
	}
	g.file.release(g.addr)
	g.addr = addr
	g.header = nil

	if g.parent == nil {
		g.file.superblock.RootGroupAddress = addr
		return nil
	}
	return g.parent.relink(path.Base(g.path), addr)
}

// linkStorage returns the group messages for the pending links: link
// messages while there are few, otherwise link info pointing at a new
// fractal heap and name index.
func (g *Group) linkStorage() ([]message.Message, error) {
	for _, addr := range g.dense {
		g.file.release(addr)
	}
	g.dense = nil
	if len(g.pendingLinks) <= maxCompactLinks {
		return object.NewGroupHeader(g.pendingLinks), nil
	}

	alloc := func(size int64) uint64 {
		addr := g.file.allocate(size)
		g.dense = append(g.dense, addr)
		return addr
	}
	objs := make([][]byte, len(g.pendingLinks))
	for i, l := range g.pendingLinks {
		objs[i] = message.Encode(l, g.file.writer)
	}
	heapAddr, ids, err := heap.WriteFractalHeap(g.file.writer, alloc, objs)
	if err != nil {
		return nil, fmt.Errorf("writing link heap: %w", err)
	}
	refs := make([]btree.NameRef, len(ids))
	for i, id := range ids {
		refs[i] = btree.NameRef{Name: g.pendingLinks[i].Name, ID: id}
	}
	index, err := btree.WriteLinkNameIndex(g.file.writer, alloc, refs)
	if err != nil {
		return nil, fmt.Errorf("writing link index: %w", err)
	}
	return []message.Message{message.NewDenseLinkInfo(heapAddr, index), message.NewGroupInfo()}, nil
}

// relink updates the hard link called name and rewrites this group.
func (g *Group) relink(name string, addr uint64) error {
	if err := g.load(); err != nil {
		return err
	}
	for _, l := range g.pendingLinks {
		if l.Name == name {
			l.ObjectAddress = addr
			return g.rewriteHeader()
		}
	}
	return fmt.Errorf("%w: link %s in %s", ErrNotFound, name, g.path)
}

// attributeMessage encodes arr as an attribute. Strings become
// variable-length strings in a new global heap collection.
func (f *File) attributeMessage(name string, arr *value.Array) (*message.Attribute, error) {
	ds := dataspaceFor(arr.Dims())

	if arr.Kind() == value.String {
		dt, data, err := f.writeVarLenStrings(arr.Strings())
		if err != nil {
			return nil, err
		}
		return message.NewAttribute(name, dt, ds, data), nil
	}

	dt, data, err := dtype.Encode(arr)
	if err != nil {
		return nil, err
	}
	return message.NewAttribute(name, dt, ds, data), nil
}

func dataspaceFor(dims []uint64) *message.Dataspace {
	if dims == nil {
		return message.NewScalarDataspace()
	}
	return message.NewDataspace(dims, nil)
}

// scalarArray wraps a data-carrying value as a rank-0 array.
func scalarArray(v value.Value) (*value.Array, error) {
	switch v.Kind() {
	case value.Bool:
		return value.Scalar(v.Bool()), nil
	case value.Int8:
		return value.Scalar(int8(v.Int())), nil
	case value.Int16:
		return value.Scalar(int16(v.Int())), nil
	case value.Int32:
		return value.Scalar(int32(v.Int())), nil
	case value.Int64:
		return value.Scalar(v.Int()), nil
	case value.Uint8:
		return value.Scalar(uint8(v.Uint())), nil
	case value.Uint16:
		return value.Scalar(uint16(v.Uint())), nil
	case value.Uint32:
		return value.Scalar(uint32(v.Uint())), nil
	case value.Uint64:
		return value.Scalar(v.Uint()), nil
	case value.Float32:
		return value.Scalar(float32(v.Float())), nil
	case value.Float64:
		return value.Scalar(v.Float()), nil
	case value.String:
		return value.Scalar(v.Str()), nil
	}
	return nil, fmt.Errorf("%w: cannot store %s value", value.ErrUnsupportedType, v.Kind())
}
