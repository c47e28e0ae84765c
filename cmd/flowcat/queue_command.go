package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"flowcatalog/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect queued files",
	}
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueHealthCommand(ctx))
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses   []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list [session-id]",
		Short: "List the files of a session",
		Args:  cobra.MaximumNArgs(1),
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
			filter := make([]queue.Status, 0, len(statuses))
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown item status %q", raw)
				}
				filter = append(filter, status)
			}
			items, err := store.ItemsForSession(cmd.Context(), sessionID, filter...)
			if err != nil {
				return err
			}
			if jsonOutput {
				views := make([]itemView, 0, len(items))
				for _, item := range items {
					views = append(views, itemJSON(item))
				}
				return writeJSON(cmd, views)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No queued files")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.WorkflowID
				if item.ErrorMessage != "" {
					detail = item.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.FileName,
					string(item.Status),
					strconv.FormatInt(item.FileSize, 10),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "File", "Status", "Bytes", "Workflow / Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, item counts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			health, err := store.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{"database": health, "items": summary})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
			if len(health.MissingTables) > 0 {
				fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(health.MissingTables, ", "))
			} else {
				fmt.Fprintln(out, "Missing tables: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
			fmt.Fprintf(out, "Sessions: %d\n", health.TotalSessions)
			fmt.Fprintf(out, "Items: %d (pending %d, processing %d, completed %d, failed %d, cancelled %d)\n",
				summary.Total, summary.Pending, summary.Processing, summary.Completed, summary.Failed, summary.Cancelled)
			if health.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", health.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type itemView struct {
	ID           int64  `json:"id"`
	SessionID    string `json:"session_id"`
	FileName     string `json:"file_name"`
	FilePath     string `json:"file_path,omitempty"`
	FileSize     int64  `json:"file_size"`
	Status       string `json:"status"`
	WorkflowID   string `json:"workflow_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func itemJSON(item *queue.Item) itemView {
	return itemView{
		ID:           item.ID,
		SessionID:    item.SessionID,
		FileName:     item.FileName,
		FilePath:     item.FilePath,
		FileSize:     item.FileSize,
		Status:       string(item.Status),
		WorkflowID:   item.WorkflowID,
		ErrorMessage: item.ErrorMessage,
	}
}
