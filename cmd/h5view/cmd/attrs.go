package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/tree"
)

func newAttrsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attrs <file> [path]",
		Short: "List the attributes of an object",
		Long: `List the attributes of the object at path, or print a single
attribute when path has the form /object@name.

Example:
  h5view attrs data.h5 /Group1/Dataset1
  h5view attrs data.h5 /@Description`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.buildTree(args[0])
			if err != nil {
				return err
			}
			p := "/"
			if len(args) == 2 {
				p = args[1]
			}
			return printAttrs(cmd.OutOrStdout(), t, p)
		},
	}
}

// printAttrs writes the attributes named by p, which is an object path
// or an attribute path.
func printAttrs(w io.Writer, t *tree.Tree, p string) error {
	objPath, name := p, ""
	if strings.Contains(p, "@") {
		var err error
		if objPath, name, err = hdf5.ParseAttrPath(p); err != nil {
			return err
		}
	}

	n, ok := t.Lookup(objPath)
	if !ok {
		return fmt.Errorf("%w: %s", tree.ErrNotFound, objPath)
	}

	if name != "" {
		v, ok := n.Attr(name)
		if !ok {
			return fmt.Errorf("%w: %s", tree.ErrNotFound, p)
		}
		fmt.Fprintln(w, v)
		return nil
	}

	if len(n.Attributes) == 0 {
		fmt.Fprintf(w, "%s has no attributes\n", n.Path)
		return nil
	}
	for _, attr := range n.Attributes {
		fmt.Fprintf(w, "%s (%s) = %s\n", attr.Name, attr.Value.Kind(), attr.Value)
	}
	return nil
}
