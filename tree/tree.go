package tree

import (
	"errors"
	"log/slog"
)

// ErrSkipChildren can be returned from a WalkFunc to skip a node's
// descendants.
var ErrSkipChildren = errors.New("skip children")

// Tree owns every node of one ingested file. Parents refer to children by
// ID and children to their parent the same way, so the arena is the only
// owner.
//
// A Tree is not safe for concurrent mutation; Materialize writes into
// the node it loads.
type Tree struct {
	src    Source
	nodes  []Node
	byPath map[string]NodeID
	logger *slog.Logger
}

// Source returns the source the tree was built from.
func (t *Tree) Source() Source { return t.src }

// Root returns the root group.
func (t *Tree) Root() *Node { return &t.nodes[0] }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Parent returns n's parent, or nil for the root.
func (t *Tree) Parent(n *Node) *Node { return t.Node(n.Parent) }

// Children returns n's children in discovery order.
func (t *Tree) Children(n *Node) []*Node {
	out := make([]*Node, len(n.Children))
	for i, id := range n.Children {
		out[i] = &t.nodes[id]
	}
	return out
}

// Lookup finds a node by its full path.
func (t *Tree) Lookup(path string) (*Node, bool) {
	if path == "" {
		path = "/"
	}
	id, ok := t.byPath[path]
	if !ok {
		return nil, false
	}
	return &t.nodes[id], true
}

// WalkFunc is called for every node visited by Walk. depth is 0 for the
// starting node.
type WalkFunc func(n *Node, depth int) error

// Walk visits the tree from the root in pre-order.
func (t *Tree) Walk(fn WalkFunc) error {
	err := t.walk(t.Root(), 0, fn)
	if errors.Is(err, ErrSkipChildren) {
		return nil
	}
	return err
}

func (t *Tree) walk(n *Node, depth int, fn WalkFunc) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, id := range n.Children {
		err := t.walk(&t.nodes[id], depth+1, fn)
		if errors.Is(err, ErrSkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Datasets returns every dataset node in pre-order.
func (t *Tree) Datasets() []*Node {
	var out []*Node
	_ = t.Walk(func(n *Node, _ int) error {
		if n.Type == Dataset {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// add appends n to the arena and returns its ID. Pointers into the arena
// are invalidated by add.
func (t *Tree) add(n Node) NodeID {
	id := NodeID(len(t.nodes))
	n.ID = id
	t.nodes = append(t.nodes, n)
	t.byPath[n.Path] = id
	return id
}

// attach appends child to parent's children.
func (t *Tree) attach(parent, child NodeID) {
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}
