package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiscalia/campo/internal/record"
	"github.com/fiscalia/campo/internal/refdata"
)

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List submissions saved offline and not yet synced",
		Long: `List submissions saved offline and not yet synced.

Rows are enriched with target details (ART number, owner) when the reference
cache has them; run "campo refresh" while online to populate it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(rootOpts, cmd)
		},
	}
	return cmd
}

// pendingRow is one line of the pending listing.
type pendingRow struct {
	TargetID   int64  `json:"targetId"`
	ARTNumber  string `json:"numeroArt,omitempty"`
	Owner      string `json:"proprietario,omitempty"`
	Status     string `json:"status"`
	Photos     int    `json:"photos"`
	CapturedAt string `json:"capturedAt"`
}

// pendingListing is the JSON payload of the pending command.
type pendingListing struct {
	Count int          `json:"count"`
	Items []pendingRow `json:"items"`
}

func runPending(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	env, err := openEnv(rootOpts, false)
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return err
	}
	defer env.close()

	subs, err := env.queue.ListPending(cmd.Context())
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read queue", err)
	}

	listing := buildPendingListing(cmd.Context(), subs, env.cache)
	return renderPending(formatter, listing)
}

// buildPendingListing maps queue records to display rows, enriching each with
// cached target details when available.
func buildPendingListing(ctx context.Context, subs []record.Submission, cache *refdata.Cache) pendingListing {
	listing := pendingListing{Count: len(subs), Items: make([]pendingRow, 0, len(subs))}
	for _, sub := range subs {
		row := pendingRow{
			TargetID:   sub.TargetID,
			Status:     string(sub.Status),
			Photos:     len(sub.Photos),
			CapturedAt: sub.CapturedAt.UTC().Format(time.RFC3339),
		}
		if cache != nil {
			if target, ok, err := cache.Target(ctx, sub.TargetID); err == nil && ok {
				row.ARTNumber = target.ARTNumber
				row.Owner = target.OwnerName
			}
		}
		listing.Items = append(listing.Items, row)
	}
	return listing
}

// renderPending writes the listing in the configured format.
func renderPending(formatter *OutputFormatter, listing pendingListing) error {
	if formatter.Format == "json" {
		return formatter.Success(listing)
	}
	return renderPendingText(formatter.Writer, listing)
}

func renderPendingText(w io.Writer, listing pendingListing) error {
	if listing.Count == 0 {
		_, err := fmt.Fprintln(w, "No pending submissions. Everything is synced.")
		return err
	}

	fmt.Fprintf(w, "%d pending submission(s):\n\n", listing.Count)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tART\tOWNER\tSTATUS\tPHOTOS\tCAPTURED")
	for _, row := range listing.Items {
		art := row.ARTNumber
		if art == "" {
			art = "-"
		}
		owner := row.Owner
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			row.TargetID, art, owner, row.Status, row.Photos, row.CapturedAt)
	}
	return tw.Flush()
}
