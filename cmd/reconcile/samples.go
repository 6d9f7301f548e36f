package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TFMV/reconcile/pkg/samples"
)

func newSamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the built-in sample scenarios",
		Long: `List the built-in legacy/cloud scenarios. Run one with:

  reconcile compare --sample NAME`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, s := range samples.All() {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
			}
			return w.Flush()
		},
	}
}
