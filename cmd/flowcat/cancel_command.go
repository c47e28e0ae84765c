package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flowcatalog/internal/notifications"
	"flowcatalog/internal/queue"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [session-id]",
		Short: "Cancel an active import session",
		Long: "Cancel an active import session. Pending files are marked cancelled and\n" +
			"never processed. Without a session id the most recent active session is cancelled.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			sessionID, err := resolveSessionID(cmd, ctx, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sessionID == "" {
				fmt.Fprintln(out, "No active import session")
				return nil
			}
			session, err := store.CancelSession(cmd.Context(), sessionID)
			if errors.Is(err, queue.ErrInvalidState) {
				return fmt.Errorf("session %s is not active", sessionID)
			}
			if err != nil {
				return err
			}
			ctx.notify(cmd, notifications.EventSessionCancelled, notifications.Payload{
				"processed": session.Done(),
				"total":     session.TotalFiles,
				"tag":       session.Tag,
			})
			fmt.Fprintf(out, "Cancelled session %s (%d/%d done)\n", session.ID, session.Done(), session.TotalFiles)
			return nil
		},
	}
}
