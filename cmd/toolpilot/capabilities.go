package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var capabilitiesQuery string

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List or search the registered tools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(io.Discard, "", nil)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if capabilitiesQuery != "" {
			results, err := a.exec.SearchCapabilities(cmd.Context(), capabilitiesQuery, 20)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\n", r.Name, r.ShortDescription)
			}
			return nil
		}

		fmt.Fprintln(w, "NAME\tPACKAGE\tRISK\tUSAGE")
		for _, d := range a.registry.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Package, d.Risk, d.Usage)
		}
		return nil
	},
}

func init() {
	capabilitiesCmd.Flags().StringVarP(&capabilitiesQuery, "query", "q", "", "search terms")
}
