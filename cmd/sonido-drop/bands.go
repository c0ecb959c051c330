package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) newBandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bands",
		Short: "List the frequency bands available for profiling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.bandRegistry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTART HZ\tSTOP HZ")
			for _, b := range registry.Bands() {
				fmt.Fprintf(w, "%s\t%g\t%g\n", b.Name, b.StartHz, b.StopHz)
			}
			return w.Flush()
		},
	}
}
