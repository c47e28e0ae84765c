package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"flowcatalog/internal/queue"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and clean up import sessions",
	}
	cmd.AddCommand(newSessionsListCommand(ctx))
	cmd.AddCommand(newSessionsDeleteCommand(ctx))
	cmd.AddCommand(newSessionsClearCommand(ctx))
	return cmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses   []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			filter := make([]queue.SessionStatus, 0, len(statuses))
			for _, raw := range statuses {
				status, err := parseSessionStatus(raw)
				if err != nil {
					return err
				}
				filter = append(filter, status)
			}
			sessions, err := store.ListSessions(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			if jsonOutput {
				views := make([]sessionView, 0, len(sessions))
				for _, session := range sessions {
					views = append(views, sessionJSON(session))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID,
					string(s.Status),
					s.Tag,
					strconv.Itoa(s.ProcessedFiles),
					strconv.Itoa(s.FailedFiles),
					strconv.Itoa(s.SkippedFiles),
					strconv.Itoa(s.TotalFiles),
					s.StartedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Tag", "Processed", "Failed", "Skipped", "Total", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (active, completed, cancelled)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its queued files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete finished sessions and release retained file content",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			cleared, err := store.ClearFinishedSessions(cmd.Context())
			if err != nil {
				return err
			}
			purged, err := store.PurgeContent(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s); released content of %d item(s)\n", cleared, purged)
			return nil
		},
	}
}

func parseSessionStatus(raw string) (queue.SessionStatus, error) {
	switch status := queue.SessionStatus(raw); status {
	case queue.SessionActive, queue.SessionCompleted, queue.SessionCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown session status %q", raw)
	}
}

type sessionView struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Tag            string     `json:"tag,omitempty"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	FailedFiles    int        `json:"failed_files"`
	SkippedFiles   int        `json:"skipped_files"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastUpdate     time.Time  `json:"last_update"`
}

// sessionJSON omits the credential.
func sessionJSON(s *queue.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		Status:         string(s.Status),
		Tag:            s.Tag,
		TotalFiles:     s.TotalFiles,
		ProcessedFiles: s.ProcessedFiles,
		FailedFiles:    s.FailedFiles,
		SkippedFiles:   s.SkippedFiles,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		LastUpdate:     s.LastUpdate,
	}
}
