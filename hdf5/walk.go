package hdf5

import (
	"errors"

	"github.com/robert-malhotra/h5view/value"
)

// ErrStopWalk can be returned from a walk callback to stop walking
// without an error.
var ErrStopWalk = errors.New("walk stopped")

// WalkFunc is called for each object during traversal. obj is nil when
// the member at path could not be resolved; err then says why. Return
// nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj *Object, err error) error

// Walk visits g and everything below it in pre-order: a group is visited
// before its members, members in storage order. Groups reachable through
// more than one hard link are descended into once.
//
//	hdf5.Walk(f.Root(), func(path string, obj *hdf5.Object, err error) error {
//	    if err != nil {
//	        return nil // skip unreadable members
//	    }
//	    fmt.Println(obj.Kind(), path)
//	    return nil
//	})
func Walk(g *Group, fn WalkFunc) error {
	if err := g.ensureHeader(); err != nil {
		return fn(g.path, nil, err)
	}
	visited := map[uint64]bool{g.addr: true}
	err := fn(g.path, g.object(), nil)
	if err == nil {
		err = walkGroup(g, visited, fn)
	}
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walkGroup(g *Group, visited map[uint64]bool, fn WalkFunc) error {
	members, err := g.Members()
	if err != nil {
		return fn(g.path, nil, err)
	}

	for _, name := range members {
		obj, err := g.child(name, make(map[string]bool))
		if err != nil {
			if err := fn(childPath(g.path, name), nil, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(obj.path, obj, nil); err != nil {
			return err
		}

		if obj.kind != KindGroup || visited[obj.addr] {
			continue
		}
		visited[obj.addr] = true
		sub, err := obj.Group()
		if err != nil {
			return err
		}
		if err := walkGroup(sub, visited, fn); err != nil {
			return err
		}
	}
	return nil
}

// AttrInfo contains information about an attribute during walking.
type AttrInfo struct {
	// Path is the full attribute path (e.g., "/group/dataset@attr")
	Path string

	// ObjectPath is the path to the object containing this attribute
	ObjectPath string

	ObjectKind Kind

	// Name is the attribute name; empty when the object's attributes
	// could not be listed at all
	Name string

	Attr *Attribute

	// Value contains the decoded attribute value (nil on read error)
	Value *value.Array

	Err error
}

// WalkAttrsFunc is the callback function type for WalkAttrs.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs visits every attribute of every object in the file.
//
//	f.WalkAttrs(func(info hdf5.AttrInfo) error {
//	    fmt.Printf("%s = %v\n", info.Path, info.Value)
//	    return nil
//	})
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	if f.closed {
		return ErrClosed
	}
	return Walk(f.root, func(path string, obj *Object, err error) error {
		if err != nil {
			return nil
		}
		attrs, err := obj.Attributes()
		if err != nil {
			return fn(AttrInfo{ObjectPath: path, ObjectKind: obj.kind, Err: err})
		}
		for _, a := range attrs {
			info := AttrInfo{
				Path:       JoinAttrPath(path, a.name),
				ObjectPath: path,
				ObjectKind: obj.kind,
				Name:       a.name,
				Attr:       a,
			}
			info.Value, info.Err = a.Read()
			if err := fn(info); err != nil {
				return err
			}
		}
		return nil
	})
}
