package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every pending submission (debug/reset)",
		Long: `Delete every pending submission (debug/reset).

This throws away data that was never delivered to the server. It exists for
debugging and device reset only and requires --yes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deletion of undelivered submissions")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	env, err := openEnv(opts.RootOptions, false)
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return err
	}
	defer env.close()

	count, err := env.queue.Count(cmd.Context())
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read queue", err)
	}

	if !opts.Yes {
		formatter.Error(CodeCommand,
			fmt.Sprintf("refusing to delete %d undelivered submission(s) without --yes", count), nil)
		return NewExitError(ExitCommandError, "confirmation required")
	}

	if err := env.queue.Clear(cmd.Context()); err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "clear failed", err)
	}

	return formatter.Success(fmt.Sprintf("Deleted %d pending submission(s).", count))
}
