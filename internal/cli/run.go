package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmeval/internal/render"
	"llmeval/internal/repl"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Interactive terminal session: type a prompt, watch the output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			style, err := render.ParseStyle(cfg.Style)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			r := repl.New(a.ev, repl.Options{
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
				Style:  style,
				Logger: log,
			})
			return r.Run(ctx)
		},
	}
}
