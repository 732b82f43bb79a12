package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List searchable categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := cfg.Table()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tPATH\tPAGES")
			for _, c := range table.Categories() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Key, c.Path, c.Pages)
			}
			return tw.Flush()
		},
	}
}
