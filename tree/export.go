package tree

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Document is a nested, serializable view of a tree.
type Document struct {
	Name       string         `yaml:"name" cbor:"name"`
	Path       string         `yaml:"path" cbor:"path"`
	Type       string         `yaml:"type" cbor:"type"`
	Attributes []AttributeDoc `yaml:"attributes,omitempty" cbor:"attributes,omitempty"`
	Dataset    *DatasetDoc    `yaml:"dataset,omitempty" cbor:"dataset,omitempty"`
	Error      string         `yaml:"error,omitempty" cbor:"error,omitempty"`
	Note       string         `yaml:"note,omitempty" cbor:"note,omitempty"`
	Children   []*Document    `yaml:"children,omitempty" cbor:"children,omitempty"`
}

// AttributeDoc is one attribute with its kind and display value.
type AttributeDoc struct {
	Name  string `yaml:"name" cbor:"name"`
	Kind  string `yaml:"kind" cbor:"kind"`
	Value string `yaml:"value" cbor:"value"`
}

// DatasetDoc describes a dataset payload without its elements.
type DatasetDoc struct {
	Kind       string   `yaml:"kind" cbor:"kind"`
	Dimensions []uint64 `yaml:"dimensions,flow" cbor:"dimensions"`
	Loaded     bool     `yaml:"loaded" cbor:"loaded"`
	Elements   int      `yaml:"elements" cbor:"elements"`
	Diagnostic string   `yaml:"diagnostic,omitempty" cbor:"diagnostic,omitempty"`
}

// Export converts t into a Document rooted at the root group.
func Export(t *Tree) *Document {
	return exportNode(t, t.Root())
}

func exportNode(t *Tree, n *Node) *Document {
	doc := &Document{
		Name: n.Name,
		Path: n.Path,
		Type: n.Type.String(),
		Note: n.Note,
	}
	if n.Err != nil {
		doc.Error = n.Err.Error()
	}
	for _, a := range n.Attributes {
		doc.Attributes = append(doc.Attributes, AttributeDoc{
			Name:  a.Name,
			Kind:  a.Value.Kind().String(),
			Value: a.Value.String(),
		})
	}
	if d := n.Dataset; d != nil {
		dd := &DatasetDoc{
			Kind:       d.Type.String(),
			Dimensions: d.Dimensions,
			Loaded:     d.IsDataLoaded(),
		}
		if d.Data != nil {
			dd.Elements = d.Data.Len()
		}
		if d.Diagnostic != nil {
			dd.Diagnostic = d.Diagnostic.Error()
		}
		doc.Dataset = dd
	}
	for _, c := range t.Children(n) {
		doc.Children = append(doc.Children, exportNode(t, c))
	}
	return doc
}

// ExportYAML writes t as a YAML document.
func ExportYAML(w io.Writer, t *Tree) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Export(t)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// ExportCBOR writes t as a CBOR document.
func ExportCBOR(w io.Writer, t *Tree) error {
	if err := cbor.NewEncoder(w).Encode(Export(t)); err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	return nil
}

// DecodeCBOR reads a document written by ExportCBOR.
func DecodeCBOR(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding cbor: %w", err)
	}
	return &doc, nil
}
