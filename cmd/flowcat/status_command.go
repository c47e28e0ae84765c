package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"flowcatalog/internal/pipeline"
	"flowcatalog/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show progress of an import session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processor, err := ctx.processor(cmd)
			if err != nil {
				return err
			}
			var sessionID string
			if len(args) > 0 {
				sessionID = args[0]
			}
			progress, err := processor.Status(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			if jsonOutput {
				if progress == nil {
					return writeJSON(cmd, map[string]any{"active": false})
				}
				return writeJSON(cmd, progressJSON(progress))
			}
			out := cmd.OutOrStdout()
			if progress == nil {
				fmt.Fprintln(out, "No active import session")
				return nil
			}
			printProgress(out, progress, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type progressView struct {
	SessionID      string  `json:"session_id"`
	Status         string  `json:"status"`
	Tag            string  `json:"tag,omitempty"`
	ProcessedFiles int     `json:"processed_files"`
	FailedFiles    int     `json:"failed_files"`
	SkippedFiles   int     `json:"skipped_files"`
	TotalFiles     int     `json:"total_files"`
	Pending        int     `json:"pending"`
	CurrentFile    string  `json:"current_file,omitempty"`
	Percent        float64 `json:"percent"`
	IsComplete     bool    `json:"is_complete"`
	HasError       bool    `json:"has_error"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

func progressJSON(p *pipeline.Progress) progressView {
	return progressView{
		SessionID:      p.SessionID,
		Status:         string(p.Status),
		Tag:            p.Tag,
		ProcessedFiles: p.ProcessedFiles,
		FailedFiles:    p.FailedFiles,
		SkippedFiles:   p.SkippedFiles,
		TotalFiles:     p.TotalFiles,
		Pending:        p.Pending,
		CurrentFile:    p.CurrentFile,
		Percent:        p.Percent,
		IsComplete:     p.IsComplete,
		HasError:       p.HasError,
		ErrorMessage:   p.ErrorMessage,
	}
}

func printProgress(out io.Writer, p *pipeline.Progress, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Session "+p.SessionID, colorize))

	kind := statusInfo
	switch p.Status {
	case queue.SessionCompleted:
		kind = statusOK
	case queue.SessionCancelled:
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, string(p.Status), colorize))
	if p.Tag != "" {
		fmt.Fprintln(out, renderStatusLine("Tag", statusInfo, p.Tag, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo,
		fmt.Sprintf("%s %d/%d (%.0f%%)", progressBar(p.Percent, 30), p.ProcessedFiles, p.TotalFiles, p.Percent), colorize))
	fmt.Fprintln(out, renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", p.Pending), colorize))
	fmt.Fprintln(out, renderStatusLine("Skipped", statusInfo, fmt.Sprintf("%d", p.SkippedFiles), colorize))

	failedKind := statusOK
	if p.FailedFiles > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", p.FailedFiles), colorize))
	if p.CurrentFile != "" {
		fmt.Fprintln(out, renderStatusLine("Current", statusInfo, p.CurrentFile, colorize))
	}
	if p.HasError {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, p.ErrorMessage, colorize))
	}
}
