package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/rows"
	"github.com/robert-malhotra/h5view/tree"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		chunkSize   int
		parallelism int
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "compare <fileA> <pathA> <fileB> <pathB>",
		Short: "Compare two datasets or groups row by row",
		Long: `Flatten two nodes into tables and report schema and cell
differences. Rows are compared in chunks in parallel.

Example:
  h5view compare old.h5 /Series new.h5 /Series --chunk-size 1000`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			left, err := a.loadTable(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			right, err := a.loadTable(ctx, args[2], args[3])
			if err != nil {
				return err
			}

			if chunkSize <= 0 {
				chunkSize = a.cfg.Compare.ChunkSize
			}
			if parallelism <= 0 {
				parallelism = a.cfg.Compare.Parallelism
			}
			report, err := rows.Diff(ctx, left, right,
				rows.WithChunkSize(chunkSize),
				rows.WithCompareParallelism(parallelism))
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report, limit)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Rows per comparison chunk (default from config)")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "Chunks compared at once (default from config)")
	cmd.Flags().IntVar(&limit, "max", 20, "Maximum differing rows to print, 0 for all")
	return cmd
}

func (a *app) loadTable(ctx context.Context, file, path string) (*rows.Table, error) {
	t, err := a.buildTree(file)
	if err != nil {
		return nil, err
	}
	n, ok := t.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", tree.ErrNotFound, path, file)
	}
	return rows.Flatten(ctx, t, n, rows.WithParallelism(a.cfg.Compare.Parallelism))
}

func printReport(w io.Writer, r *rows.Report, limit int) error {
	fmt.Fprintln(w, r.Message)
	for _, d := range r.Schema {
		fmt.Fprintf(w, "  schema: %s\n", d.Message)
	}
	for i, rd := range r.Rows {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "  ... %d more rows\n", len(r.Rows)-limit)
			break
		}
		fmt.Fprintf(w, "  row %d:\n", rd.Row)
		for _, c := range rd.Cells {
			fmt.Fprintf(w, "    %s: %s != %s\n", c.Name, c.Left, c.Right)
		}
	}
	return nil
}
