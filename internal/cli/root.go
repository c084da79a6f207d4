// Package cli wires configuration, logging, the inference backend and the
// evaluator into the llmeval command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmeval/internal/config"
)

// NewRootCmd builds the llmeval command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "llmeval",
		Short:         "Run local instruct models and watch their output stream",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addConfigFlags(root)
	root.AddCommand(newServeCmd(), newRunCmd(), newModelsCmd(), newDownloadCmd())
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "llmeval:", err)
		return 1
	}
	return 0
}

// setup resolves config and builds the logger for a subcommand.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, NewLogger(cfg.LogLevel, cmd.ErrOrStderr()), nil
}
