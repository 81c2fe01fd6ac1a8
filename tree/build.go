package tree

import (
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/h5view/hdf5"
)

// Option configures Build.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for placeholder and diagnostic events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build opens src and ingests the whole hierarchy. Every dataset is
// materialized during the walk. The file is closed before Build returns.
//
// Only failing to open the source or its root group is fatal; such
// errors wrap ErrCannotOpenFile.
func Build(src Source, opts ...Option) (*Tree, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotOpenFile, src.Name(), err)
	}
	defer f.Close()

	rootObj, err := f.Object("/")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: root group: %w", ErrCannotOpenFile, src.Name(), err)
	}
	root, err := rootObj.Group()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: root group: %w", ErrCannotOpenFile, src.Name(), err)
	}

	t := &Tree{
		src:    src,
		byPath: make(map[string]NodeID),
		logger: o.logger,
	}
	b := &builder{
		t:       t,
		logger:  o.logger.With("source", src.Name()),
		ancestors: map[uint64]bool{rootObj.Address(): true},
	}

	id := t.add(Node{
		Name:       "/",
		Path:       "/",
		Type:       Group,
		Parent:     NoParent,
		Attributes: ReadAttributes(rootObj),
	})
	b.buildGroup(id, root)

	o.logger.Debug("tree built", "source", src.Name(), "nodes", t.Len())
	return t, nil
}

type builder struct {
	t      *Tree
	logger *slog.Logger

	// ancestors holds the header addresses of the groups on the current
	// descent path. A link back to one of them is a cycle.
	ancestors map[uint64]bool
}

// buildGroup adds g's members below the node id. Each child is attached
// once its own subtree is complete.
func (b *builder) buildGroup(id NodeID, g *hdf5.Group) {
	parentPath := b.t.nodes[id].Path

	members, err := g.Members()
	if err != nil {
		b.t.nodes[id].Err = err
		b.logger.Warn("cannot list group members", "path", parentPath, "error", err)
		return
	}

	for _, name := range members {
		path := childPath(parentPath, name)
		obj, err := g.Object(name)
		if err != nil {
			b.logger.Warn("cannot open child", "path", path, "error", err)
			child := b.t.add(Node{Name: name, Path: path, Type: Other, Parent: id, Err: err})
			b.t.attach(id, child)
			continue
		}

		var child NodeID
		switch obj.Kind() {
		case hdf5.KindGroup:
			child = b.group(id, name, path, obj)
		case hdf5.KindDataset:
			child = b.dataset(id, name, path, obj)
		default:
			child = b.other(id, name, path, obj)
		}
		b.t.attach(id, child)
	}
}

func (b *builder) group(parent NodeID, name, path string, obj *hdf5.Object) NodeID {
	id := b.t.add(Node{
		Name:       name,
		Path:       path,
		Type:       Group,
		Parent:     parent,
		Attributes: ReadAttributes(obj),
	})

	addr := obj.Address()
	if b.ancestors[addr] {
		b.t.nodes[id].Note = "link to an enclosing group"
		b.logger.Debug("not descending into enclosing group", "path", path)
		return id
	}

	g, err := obj.Group()
	if err != nil {
		b.t.nodes[id].Err = err
		b.logger.Warn("cannot open group", "path", path, "error", err)
		return id
	}
	b.ancestors[addr] = true
	b.buildGroup(id, g)
	delete(b.ancestors, addr)
	return id
}

func (b *builder) dataset(parent NodeID, name, path string, obj *hdf5.Object) NodeID {
	ds, err := obj.Dataset()
	if err != nil {
		b.logger.Warn("cannot open dataset", "path", path, "error", err)
		return b.t.add(Node{
			Name:       name,
			Path:       path,
			Type:       Other,
			Parent:     parent,
			Attributes: ReadAttributes(obj),
			Err:        err,
		})
	}

	info := &DatasetInfo{Dimensions: ds.Dims()}
	info.Type, info.Diagnostic = ds.Type()
	info.Data, err = Materialize(ds, info.Dimensions, info.Type)
	if info.Diagnostic == nil {
		info.Diagnostic = err
	}
	if info.Diagnostic != nil {
		b.logger.Debug("dataset not loaded", "path", path, "error", info.Diagnostic)
	}

	return b.t.add(Node{
		Name:       name,
		Path:       path,
		Type:       Dataset,
		Parent:     parent,
		Attributes: ReadAttributes(ds),
		Dataset:    info,
	})
}

func (b *builder) other(parent NodeID, name, path string, obj *hdf5.Object) NodeID {
	b.logger.Debug("other object", "path", path, "note", obj.Note())
	return b.t.add(Node{
		Name:       name,
		Path:       path,
		Type:       Other,
		Parent:     parent,
		Attributes: ReadAttributes(obj),
		Note:       obj.Note(),
	})
}
