package cli

import (
	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the local reference caches from the API",
		Long: `Refresh the local reference caches from the API.

Replaces the cached targets, users, teams and checklist service catalog with
fresh server data. Run while online so the pending listing and the checklist
questionnaire keep working in the field.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts, cmd)
		},
	}
	return cmd
}

func runRefresh(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	env, err := openEnv(rootOpts, true)
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return err
	}
	defer env.close()

	if err := env.cache.RefreshAll(cmd.Context()); err != nil {
		formatter.Error(CodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "refresh failed", err)
	}

	return formatter.Success("Reference caches refreshed.")
}
