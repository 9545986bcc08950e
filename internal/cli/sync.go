package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Attempt delivery of all pending submissions now",
		Long: `Attempt delivery of all pending submissions now.

Runs one drain: records are sent strictly in key order, each removed from the
queue once the server acknowledges it. The drain stops at the first failure;
remaining records stay queued for the next attempt.

Exit status is 1 when records remain pending, 0 when the queue is empty.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

// syncOutcome is the JSON payload of the sync command.
type syncOutcome struct {
	Attempted int    `json:"attempted"`
	Delivered int    `json:"delivered"`
	Remaining int    `json:"remaining"`
	Failed    int64  `json:"failedTarget,omitempty"`
	Failure   string `json:"failure,omitempty"`
}

func runSync(rootOpts *RootOptions, cmd *cobra.Command) error {
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

	report, err := env.controller.DrainAll(cmd.Context())
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "sync aborted", err)
	}

	outcome := syncOutcome{
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Remaining: report.Remaining,
		Failed:    report.FailedTarget,
	}
	if report.FailureErr != nil {
		outcome.Failure = report.FailureErr.Error()
	}

	if formatter.Format == "json" {
		if err := formatter.Success(outcome); err != nil {
			return err
		}
	} else {
		renderSyncText(formatter, outcome)
	}

	if outcome.Remaining > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d submission(s) still pending", outcome.Remaining))
	}
	return nil
}

func renderSyncText(formatter *OutputFormatter, outcome syncOutcome) {
	w := formatter.Writer
	if outcome.Attempted == 0 {
		fmt.Fprintln(w, "Queue is empty, nothing to sync.")
		return
	}
	fmt.Fprintf(w, "Delivered %d of %d pending submission(s).\n", outcome.Delivered, outcome.Attempted)
	if outcome.Failure != "" {
		fmt.Fprintf(w, "Stopped at target %d: %s\n", outcome.Failed, outcome.Failure)
	}
	if outcome.Remaining > 0 {
		fmt.Fprintf(w, "%d submission(s) remain queued.\n", outcome.Remaining)
	}
}
