package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/sample"
)

func newSampleCmd(a *app) *cobra.Command {
	var series int
	cmd := &cobra.Command{
		Use:   "sample <out.h5>",
		Short: "Write a sample HDF5 file",
		Long: `Write the two-group sample file. With --series, also add a
/Series group with that many rows of mixed column types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if series > 0 {
				err = sample.WriteSeries(args[0], series)
			} else {
				err = sample.Write(args[0])
			}
			if err != nil {
				return err
			}
			a.logger.Info("sample written", "path", args[0], "series", series)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&series, "series", 0, "Rows in the /Series group, 0 to omit it")
	return cmd
}
