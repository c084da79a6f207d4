package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			store, cat, err := newCatalog(cfg)
			if err != nil {
				return err
			}
			def := cat.Default().ID
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tFAMILY\tQUANT\tSIZE\tSTATE")
			for _, m := range cat.List() {
				mark := ""
				if m.ID == def {
					mark = "*"
				}
				state := "remote"
				if m.Local() || store.Has(m) {
					state = "local"
				}
				size := "-"
				if m.SizeMB > 0 {
					size = fmt.Sprintf("%dMB", m.SizeMB)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, m.ID, m.Family, m.Quant, size, state)
			}
			return tw.Flush()
		},
	}
}
