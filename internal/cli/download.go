package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmeval/internal/catalog"
)

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download [model-id]",
		Short: "Fetch a catalog checkpoint into the models directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			store, cat, err := newCatalog(cfg)
			if err != nil {
				return err
			}
			m := cat.Default()
			if len(args) == 1 {
				if m, err = cat.Lookup(args[0]); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			last := -1
			path, err := store.Ensure(ctx, m, func(p catalog.Progress) {
				pct := int(p.Fraction() * 100)
				if pct != last {
					last = pct
					fmt.Fprintf(out, "\rDownloading %s: %d%%", m.ID, pct)
				}
			})
			if last >= 0 {
				fmt.Fprintln(out)
			}
			if err != nil {
				return fmt.Errorf("download %s: %w", m.ID, err)
			}
			log.Info().Str("model", m.ID).Str("path", path).Msg("checkpoint ready")
			fmt.Fprintln(out, path)
			return nil
		},
	}
}
