package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/tree"
)

func newTreeCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the object tree of a file",
		Long: `Print every group, dataset and placeholder of an HDF5 file.

Example:
  h5view tree data.h5
  h5view tree data.h5 --format yaml -o data.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			t, err := a.buildTree(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, cerr := os.Create(output)
				if cerr != nil {
					return fmt.Errorf("failed to create output file: %w", cerr)
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			return writeTree(w, t, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, yaml or cbor")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func writeTree(w io.Writer, t *tree.Tree, format string) error {
	switch format {
	case "text":
		return tree.Format(w, t)
	case "yaml":
		return tree.ExportYAML(w, t)
	case "cbor":
		return tree.ExportCBOR(w, t)
	}
	return fmt.Errorf("unknown format %q", format)
}
