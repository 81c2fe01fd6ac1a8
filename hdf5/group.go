package hdf5

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	file   *File
	parent *Group // nil for the root
	path   string
	header *object.Header
	addr   uint64 // object header address

	// Writer state. dense holds the blocks of the current dense link
	// storage, released when the group is rewritten.
	loaded       bool
	pendingLinks []*message.Link
	pendingAttrs []*message.Attribute
	dense        []uint64
}

type linkKind uint8

const (
	linkHard linkKind = iota
	linkSoft
	linkExternal
)

// linkEntry is one named member, from either link messages or a symbol
// table.
type linkEntry struct {
	name   string
	kind   linkKind
	addr   uint64
	target string // soft link path or external object path
	file   string // external file name
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// ensureHeader reads the object header if it is not loaded yet. Groups
// created by the writer drop their header on every rewrite.
func (g *Group) ensureHeader() error {
	if g.header != nil {
		return nil
	}
	header, err := object.Read(g.file.reader, g.addr)
	if err != nil {
		return fmt.Errorf("reading group header %s: %w", g.path, err)
	}
	g.header = header
	return nil
}

func (g *Group) object() *Object {
	return &Object{
		file:   g.file,
		parent: g.parent,
		name:   g.Name(),
		path:   g.path,
		kind:   KindGroup,
		header: g.header,
		addr:   g.addr,
	}
}

// entries lists the group's members in storage order.
func (g *Group) entries() ([]linkEntry, error) {
	if err := g.ensureHeader(); err != nil {
		return nil, err
	}

	links, err := g.links()
	if err != nil {
		return nil, err
	}

	var out []linkEntry
	for _, link := range links {
		e := linkEntry{name: link.Name}
		switch {
		case link.IsHard():
			e.kind, e.addr = linkHard, link.ObjectAddress
		case link.IsSoft():
			e.kind, e.target = linkSoft, link.SoftLinkValue
		default:
			e.kind, e.file, e.target = linkExternal, link.ExternalFile, link.ExternalPath
		}
		out = append(out, e)
	}
	if len(out) > 0 {
		return out, nil
	}

	symTable := g.symbolTable()
	if symTable == nil {
		return nil, nil
	}

	localHeap, err := heap.ReadLocalHeap(g.file.reader, symTable.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	members, err := btree.ReadGroup(g.file.reader, symTable.BTreeAddress, localHeap)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree: %w", err)
	}
	for _, m := range members {
		if m.IsSoftLink() {
			out = append(out, linkEntry{name: m.Name, kind: linkSoft, target: m.SoftLink})
			continue
		}
		out = append(out, linkEntry{name: m.Name, kind: linkHard, addr: m.Address})
	}
	return out, nil
}

// links returns the well-formed link messages of a new-style group,
// compact or dense.
func (g *Group) links() ([]*message.Link, error) {
	msgs := g.header.GetMessages(message.TypeLink)
	if li, ok := g.header.GetMessage(message.TypeLinkInfo).(*message.LinkInfo); ok && li.IsDense() {
		var err error
		if msgs, err = denseMessages(g.file.reader, message.TypeLink, li.FractalHeapAddr, li); err != nil {
			return nil, fmt.Errorf("dense links of %s: %w", g.path, err)
		}
	}
	out := make([]*message.Link, 0, len(msgs))
	for _, msg := range msgs {
		if l, ok := msg.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// symbolTable returns the v1 symbol table of the group. The root group of
// old files may carry it only in the superblock scratch pad.
func (g *Group) symbolTable() *message.SymbolTable {
	if st, ok := g.header.GetMessage(message.TypeSymbolTable).(*message.SymbolTable); ok {
		return st
	}
	sb := g.file.superblock
	if g.parent == nil && g.path == "/" && sb.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     sb.RootGroupBTreeAddress,
			LocalHeapAddress: sb.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

// Members returns the names of all members in storage order.
func (g *Group) Members() ([]string, error) {
	entries, err := g.entries()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

// NumObjects returns the number of members in this group.
func (g *Group) NumObjects() (int, error) {
	entries, err := g.entries()
	return len(entries), err
}

// Object resolves a member, or a slash-separated relative path below the
// group, to an object.
func (g *Group) Object(relativePath string) (*Object, error) {
	parts := SplitPath(relativePath)
	if len(parts) == 0 {
		if err := g.ensureHeader(); err != nil {
			return nil, err
		}
		return g.object(), nil
	}

	visited := make(map[string]bool)
	cur := g
	var obj *Object
	for i, name := range parts {
		var err error
		obj, err = cur.child(name, visited)
		if err != nil {
			return nil, err
		}
		if i < len(parts)-1 {
			if cur, err = obj.Group(); err != nil {
				return nil, err
			}
		}
	}
	return obj, nil
}

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	if len(SplitPath(relativePath)) == 0 {
		return g, nil
	}
	obj, err := g.Object(relativePath)
	if err != nil {
		return nil, err
	}
	return obj.Group()
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.Object(relativePath)
	if err != nil {
		return nil, err
	}
	return obj.Dataset()
}

// child finds a direct member and follows its link.
func (g *Group) child(name string, visited map[string]bool) (*Object, error) {
	entries, err := g.entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name == name {
			return g.follow(e, visited)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, childPath(g.path, name))
}

// follow resolves a link. Soft links pointing nowhere and external links
// resolve to header-less KindOther objects rather than errors.
func (g *Group) follow(e linkEntry, visited map[string]bool) (*Object, error) {
	p := childPath(g.path, e.name)

	switch e.kind {
	case linkHard:
		return g.file.objectAt(e.addr, e.name, p, g)

	case linkSoft:
		if len(visited) >= MaxLinkDepth {
			return nil, ErrLinkDepth
		}
		if visited[e.target] {
			return nil, fmt.Errorf("circular soft link detected: %s", e.target)
		}
		visited[e.target] = true

		target := e.target
		if !strings.HasPrefix(target, "/") {
			target = path.Join(g.path, target)
		}
		obj, err := g.file.resolve(target, visited)
		if errors.Is(err, ErrNotFound) {
			return &Object{file: g.file, parent: g, name: e.name, path: p, note: "dangling soft link to " + e.target}, nil
		}
		if err != nil {
			return nil, err
		}
		obj.name, obj.path = e.name, p
		return obj, nil

	default:
		return &Object{
			file:   g.file,
			parent: g,
			name:   e.name,
			path:   p,
			note:   fmt.Sprintf("external link to %s:%s", e.file, e.target),
		}, nil
	}
}

// Attributes returns the group's attributes in header order.
func (g *Group) Attributes() ([]*Attribute, error) {
	if err := g.ensureHeader(); err != nil {
		return nil, err
	}
	return attributesOf(g.header, g.file.reader)
}

// Attr returns the first attribute called name.
func (g *Group) Attr(name string) (*Attribute, error) {
	attrs, err := g.Attributes()
	if err != nil {
		return nil, err
	}
	return findAttr(attrs, name, g.path)
}
