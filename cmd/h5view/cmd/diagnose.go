package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/hdf5"
)

func newDiagnoseCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <file>",
		Short: "Dump the superblock and object headers of a file",
		Long: `Walk every object of an HDF5 file and print its header version and
message types. Unreadable members are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return diagnose(cmd.OutOrStdout(), f)
		},
	}
}

func diagnose(w io.Writer, f *hdf5.File) error {
	fmt.Fprintf(w, "=== %s ===\n", f.Name())
	fmt.Fprintf(w, "superblock version: %d\n", f.Version())
	fmt.Fprintf(w, "offset size: %d, length size: %d\n\n", f.OffsetSize(), f.LengthSize())

	counts := make(map[hdf5.Kind]int)
	failures := 0
	err := hdf5.Walk(f.Root(), func(path string, obj *hdf5.Object, err error) error {
		if err != nil {
			failures++
			fmt.Fprintf(w, "%s: ERROR %v\n", path, err)
			return nil
		}
		counts[obj.Kind()]++

		if !obj.HasHeader() {
			fmt.Fprintf(w, "%s %s: %s\n", obj.Kind(), path, obj.Note())
			return nil
		}
		fmt.Fprintf(w, "%s %s at 0x%x (header v%d)\n", obj.Kind(), path, obj.Address(), obj.HeaderVersion())
		if note := obj.Note(); note != "" {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
		for _, t := range obj.MessageTypes() {
			fmt.Fprintf(w, "  message: %s\n", t)
		}
		if obj.Kind() == hdf5.KindDataset {
			describeDataset(w, obj)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\ngroups: %d, datasets: %d, other: %d, errors: %d\n",
		counts[hdf5.KindGroup], counts[hdf5.KindDataset], counts[hdf5.KindOther], failures)
	return nil
}

func describeDataset(w io.Writer, obj *hdf5.Object) {
	ds, err := obj.Dataset()
	if err != nil {
		fmt.Fprintf(w, "  ERROR opening dataset: %v\n", err)
		return
	}
	t, err := ds.Type()
	if err != nil {
		fmt.Fprintf(w, "  type: %v\n", err)
	} else {
		fmt.Fprintf(w, "  type: %s\n", t)
	}
	fmt.Fprintf(w, "  shape: %v, layout: %s\n", ds.Dims(), ds.LayoutClass())
	if names := ds.FilterNames(); names != nil {
		fmt.Fprintf(w, "  filters: %s\n", strings.Join(names, ", "))
	}
}
