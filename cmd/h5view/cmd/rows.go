package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/rows"
	"github.com/robert-malhotra/h5view/tree"
)

func newRowsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rows <file> <path>",
		Short: "Print a dataset or group as a table",
		Long: `Flatten the dataset or group at path into columns and print the
first rows. With --store-dir set, tables are persisted between runs.

Example:
  h5view rows data.h5 /Group2/Dataset2 --max 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.newManager(nil)
			if err != nil {
				return err
			}
			defer release()

			s, err := m.Open(tree.FileSource(args[0]))
			if err != nil {
				return err
			}
			defer m.Close(s.ID())

			t, err := s.Select(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), t, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "max", 20, "Maximum rows to print, 0 for all")
	return cmd
}

// printTable writes up to limit rows of t as aligned columns.
func printTable(w io.Writer, t *rows.Table, limit int) error {
	if t.NumColumns() == 0 {
		_, err := fmt.Fprintln(w, "(no columns)")
		return err
	}

	total := t.NumRows()
	shown := total
	if limit > 0 && limit < total {
		shown = limit
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "#")
	for _, name := range t.Names() {
		fmt.Fprintf(tw, "\t%s", name)
	}
	fmt.Fprintln(tw)
	for i := range shown {
		fmt.Fprint(tw, i)
		for _, v := range t.Row(i) {
			fmt.Fprintf(tw, "\t%s", v)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d of %d rows)\n", shown, total)
	return err
}
