package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"flowcatalog/internal/logging"
	"flowcatalog/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		drain      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "process [session-id]",
		Short: "Process the next queued workflow of a session",
		Long: "Process the next queued workflow of a session, or every remaining one with\n" +
			"--drain. Without a session id the most recent active session is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(cfg.ProcessLockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire process lock: %w", err)
			}
			if !locked {
				return errors.New("another flowcat process command is running")
			}
			defer func() { _ = lock.Unlock() }()

			processor, err := ctx.processor(cmd)
			if err != nil {
				return err
			}
			sessionID, err := resolveSessionID(cmd, ctx, args)
			if err != nil {
				return err
			}
			if sessionID == "" {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"active": false})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No active import session")
				return nil
			}

			out := cmd.OutOrStdout()
			if !drain {
				result, err := processor.Step(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stepJSON(result))
				}
				printStep(out, result, shouldColorize(out))
				return nil
			}

			logger := logging.NewComponentLogger(ctx.loggerFor(cmd), "cli")
			sampler := logging.NewProgressSampler(10)
			colorize := shouldColorize(out)
			var steps []stepView
			final, err := processor.Drain(cmd.Context(), sessionID, func(result *pipeline.StepResult) {
				if jsonOutput {
					steps = append(steps, stepJSON(result))
					return
				}
				printStep(out, result, colorize)
				if result.Progress.Total > 0 {
					percent := float64(result.Progress.Processed) / float64(result.Progress.Total) * 100
					if sampler.ShouldLog(percent) {
						logger.Info("import progress",
							logging.SessionID(sessionID),
							logging.Int("processed", result.Progress.Processed),
							logging.Int("total", result.Progress.Total),
						)
					}
				}
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, steps)
			}
			if !final.Completed {
				fmt.Fprintln(out, "Stopped: another process holds the last item")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drain, "drain", false, "Process until the session completes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// resolveSessionID returns the explicit argument or the active session id,
// which is empty when nothing is active.
func resolveSessionID(cmd *cobra.Command, ctx *commandContext, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	store, err := ctx.queueStore()
	if err != nil {
		return "", err
	}
	session, err := store.ActiveSession(cmd.Context())
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}
	return session.ID, nil
}

type stepView struct {
	Completed  bool   `json:"completed"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ItemID     int64  `json:"item_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Workflow   string `json:"workflow,omitempty"`
	Message    string `json:"message"`
	Discarded  bool   `json:"discarded,omitempty"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
}

func stepJSON(result *pipeline.StepResult) stepView {
	view := stepView{
		Completed: result.Completed,
		Success:   result.Success,
		Error:     result.Error,
		ItemID:    result.ItemID,
		FileName:  result.FileName,
		Message:   result.Message,
		Discarded: result.Discarded,
		Processed: result.Progress.Processed,
		Total:     result.Progress.Total,
	}
	if result.Workflow != nil {
		view.WorkflowID = result.Workflow.ID
		view.Workflow = result.Workflow.Name
	}
	return view
}

func printStep(out io.Writer, result *pipeline.StepResult, colorize bool) {
	position := fmt.Sprintf("[%d/%d]", result.Progress.Processed, result.Progress.Total)
	switch {
	case result.Completed:
		fmt.Fprintf(out, "Complete: %d/%d processed\n", result.Progress.Processed, result.Progress.Total)
	case result.Success:
		line := fmt.Sprintf("%s ok    %s -> %s", position, result.FileName, result.Workflow.Name)
		fmt.Fprintln(out, paint(line, ansiGreen, colorize))
	case result.Error != "":
		line := fmt.Sprintf("%s fail  %s: %s", position, result.FileName, result.Error)
		fmt.Fprintln(out, paint(line, ansiRed, colorize))
	default:
		fmt.Fprintln(out, result.Message)
	}
	if result.Discarded {
		fmt.Fprintln(out, "Session is no longer active; result not counted")
	}
}
