package tree

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Format writes an indented outline of t, one line per node:
//
//	Group: /
//	  [Attributes: Description]
//	  Group: /Group1
//	    Dataset: /Group1/Dataset1 [10] (int32)
func Format(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	err := t.Walk(func(n *Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		bw.WriteString(indent)
		bw.WriteString(n.Type.String())
		bw.WriteString(": ")
		bw.WriteString(n.Path)

		switch {
		case n.Dataset != nil:
			if len(n.Dataset.Dimensions) > 0 {
				bw.WriteString(" ")
				bw.WriteString(formatDims(n.Dataset.Dimensions))
			}
			bw.WriteString(" (")
			bw.WriteString(n.Dataset.Type.String())
			bw.WriteString(")")
		case n.Err != nil:
			bw.WriteString(" (error: ")
			bw.WriteString(n.Err.Error())
			bw.WriteString(")")
		case n.Note != "":
			bw.WriteString(" (")
			bw.WriteString(n.Note)
			bw.WriteString(")")
		}
		bw.WriteString("\n")

		if len(n.Attributes) > 0 {
			bw.WriteString(indent)
			bw.WriteString("  [Attributes: ")
			bw.WriteString(strings.Join(n.AttrNames(), ", "))
			bw.WriteString("]\n")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// String returns the Format outline.
func (t *Tree) String() string {
	var sb strings.Builder
	_ = Format(&sb, t)
	return sb.String()
}

func formatDims(dims []uint64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.FormatUint(d, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
