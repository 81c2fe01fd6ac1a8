package tree

import (
	"github.com/robert-malhotra/h5view/value"
)

// NodeID indexes a node in its tree's arena.
type NodeID int32

// NoParent is the parent of the root node.
const NoParent NodeID = -1

// NodeType is the capability set of a node.
type NodeType uint8

const (
	Group NodeType = iota
	Dataset
	Other
)

func (t NodeType) String() string {
	switch t {
	case Group:
		return "Group"
	case Dataset:
		return "Dataset"
	}
	return "Other"
}

// Attribute is a decoded attribute. Multi-element attributes are joined
// into one string value; undecodable ones hold an error value.
type Attribute struct {
	Name  string
	Value value.Value
}

// DatasetInfo is the payload of a Dataset node.
type DatasetInfo struct {
	Type       value.Type
	Dimensions []uint64
	Data       *value.Array

	// Diagnostic records why Data is empty: ErrUnsupportedRank,
	// value.ErrUnsupportedType or a read failure.
	Diagnostic error
}

// IsDataLoaded reports whether Data holds at least one element.
func (d *DatasetInfo) IsDataLoaded() bool {
	return d != nil && d.Data != nil && d.Data.Len() > 0
}

// Rank returns the number of dimensions, 0 for scalars.
func (d *DatasetInfo) Rank() int { return len(d.Dimensions) }

// Node is one object of the file hierarchy.
type Node struct {
	ID         NodeID
	Name       string
	Path       string
	Type       NodeType
	Parent     NodeID
	Attributes []Attribute

	// Children lists child nodes of a group in discovery order.
	Children []NodeID

	// Dataset is set on Dataset nodes.
	Dataset *DatasetInfo

	// Err is set on placeholders for children that could not be opened,
	// and on groups whose members could not be listed.
	Err error

	// Note describes what an Other node stands for.
	Note string
}

// IsRoot reports whether n is the root group.
func (n *Node) IsRoot() bool { return n.Parent == NoParent }

// Attr returns the value of the first attribute called name.
func (n *Node) Attr(name string) (value.Value, bool) {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return value.Value{}, false
}

// AttrNames lists attribute names in storage order.
func (n *Node) AttrNames() []string {
	names := make([]string, len(n.Attributes))
	for i, a := range n.Attributes {
		names[i] = a.Name
	}
	return names
}

// childPath joins a child name onto its parent's path.
func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
