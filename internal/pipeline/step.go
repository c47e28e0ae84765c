package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"flowcatalog/internal/dedup"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/logging"
	"flowcatalog/internal/notifications"
	"flowcatalog/internal/queue"
	"flowcatalog/internal/services"
)

// Step processes the next pending item of an active session. It returns
// queue.ErrSessionNotFound for unknown sessions and queue.ErrInvalidState for
// sessions that are no longer active. Item failures are reported in the
// result, not as an error.
func (p *Processor) Step(ctx context.Context, sessionID string) (*StepResult, error) {
	requestID := uuid.NewString()
	ctx = services.WithSessionID(ctx, sessionID)
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, p.logger)

	session, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, fmt.Errorf("%w: session %s is %s", queue.ErrInvalidState, sessionID, session.Status)
	}

	if err := p.reclaimStale(ctx, logger, sessionID); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}

	item, err := p.store.ClaimNext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	if item == nil {
		return p.finishSession(ctx, logger, session)
	}

	ctx = services.WithItemID(ctx, item.ID)
	logger = logging.WithContext(ctx, p.logger).With(logging.FileName(item.FileName))
	logger.Debug("item claimed")

	analysis, itemErr := p.analyze(ctx, session, item)
	if itemErr != nil {
		if !services.IsItemFailure(itemErr) {
			return nil, itemErr
		}
		return p.recordFailure(ctx, logger, session, item, itemErr)
	}

	workflowID, err := p.catalog.Upsert(ctx, analysis, session.Tag)
	if err != nil {
		return nil, fmt.Errorf("step: catalog upsert: %w", err)
	}
	if err := p.store.Mark(ctx, item.ID, queue.StatusCompleted, queue.MarkOptions{WorkflowID: workflowID}); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}

	result := &StepResult{
		Success:  true,
		ItemID:   item.ID,
		FileName: item.FileName,
		Workflow: analysis,
		Message:  fmt.Sprintf("Imported %s", analysis.Name),
	}
	p.applyCounters(ctx, logger, session, result, 1, 0)
	logger.Info("workflow imported",
		logging.Event("item_completed"),
		logging.WorkflowID(workflowID),
		logging.Tag(session.Tag),
		logging.Int("processed", result.Progress.Processed),
		logging.Int("total", result.Progress.Total),
	)
	return result, nil
}

// analyze parses and analyzes an item. Errors tagged as item failures fail
// the item; anything else aborts the step.
func (p *Processor) analyze(ctx context.Context, session *queue.Session, item *queue.Item) (*flow.Analysis, error) {
	wf, err := p.parser.Parse(item.FileContent, item.FilePath)
	if err != nil || wf == nil {
		return nil, services.Wrap(services.ErrParse, "pipeline", "parse", item.FileName, err)
	}
	analysis, err := p.analyzer.Analyze(ctx, wf, item.FilePath, session.Credential)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("step: analyze: %w", ctxErr)
		}
		if !errors.Is(err, services.ErrAnalysis) {
			err = services.Wrap(services.ErrAnalysis, "pipeline", "analyze", item.FileName, err)
		}
		return nil, err
	}
	if analysis == nil {
		return nil, services.Wrap(services.ErrAnalysis, "pipeline", "analyze", "analyzer returned no result", nil)
	}
	analysis.ID = dedup.FromWorkflow(wf).String()
	analysis.Tag = session.Tag
	if strings.TrimSpace(analysis.Name) == "" {
		analysis.Name = flow.DisplayName(wf, item.FileName)
	}
	if analysis.FilePath == "" {
		analysis.FilePath = item.FilePath
	}
	return analysis, nil
}

func (p *Processor) recordFailure(ctx context.Context, logger *slog.Logger, session *queue.Session, item *queue.Item, itemErr error) (*StepResult, error) {
	message := failureMessage(itemErr)
	if err := p.store.Mark(ctx, item.ID, queue.StatusFailed, queue.MarkOptions{ErrorMessage: message}); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	result := &StepResult{
		Error:    message,
		ItemID:   item.ID,
		FileName: item.FileName,
		Message:  fmt.Sprintf("Failed %s: %s", item.FileName, message),
	}
	p.applyCounters(ctx, logger, session, result, 0, 1)

	details := services.Details(itemErr)
	logging.WarnWithContext(logger, "workflow failed", "item_failed",
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.Error(itemErr),
		logging.String(logging.FieldErrorHint, failureHint(details.Kind)),
		logging.String(logging.FieldImpact, "item skipped; the session continues"),
	)
	return result, nil
}

// applyCounters increments the session counters and fills result.Progress.
// A session cancelled mid-step refuses the increment; the result is then
// marked discarded and reports the counters as they stood.
func (p *Processor) applyCounters(ctx context.Context, logger *slog.Logger, session *queue.Session, result *StepResult, processed, failed int) {
	updated, err := p.store.IncrementCounters(ctx, session.ID, processed, failed)
	if err == nil {
		result.Progress = StepProgress{Processed: updated.Done(), Total: updated.TotalFiles}
		return
	}
	result.Discarded = true
	result.Progress = StepProgress{Processed: session.Done(), Total: session.TotalFiles}
	if current, getErr := p.store.GetSession(ctx, session.ID); getErr == nil {
		result.Progress = StepProgress{Processed: current.Done(), Total: current.TotalFiles}
	}
	if errors.Is(err, queue.ErrInvalidState) {
		logger.Info("session left active state during step; result discarded",
			logging.Event("result_discarded"),
		)
		return
	}
	logging.ErrorWithContext(logger, "failed to update session counters", "counter_update_failed",
		logging.Error(err),
	)
}

// finishSession completes a session whose queue has drained. If another
// caller still holds an item the session stays active.
func (p *Processor) finishSession(ctx context.Context, logger *slog.Logger, session *queue.Session) (*StepResult, error) {
	progress := StepProgress{Processed: session.Done(), Total: session.TotalFiles}
	inFlight, err := p.store.CurrentProcessing(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	if inFlight != nil {
		return &StepResult{
			ItemID:   inFlight.ID,
			FileName: inFlight.FileName,
			Message:  fmt.Sprintf("Waiting for %s", inFlight.FileName),
			Progress: progress,
		}, nil
	}
	completed, err := p.store.CompleteSession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	logger.Info("import session completed",
		logging.Event("session_completed"),
		logging.Int("processed", completed.ProcessedFiles),
		logging.Int("failed", completed.FailedFiles),
		logging.Int("skipped", completed.SkippedFiles),
		logging.Int("total", completed.TotalFiles),
	)
	if err := p.notifier.Publish(ctx, notifications.EventSessionCompleted, notifications.Payload{
		"processed": completed.Done(),
		"failed":    completed.FailedFiles,
		"tag":       completed.Tag,
		"duration":  p.now().Sub(completed.StartedAt),
	}); err != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session completed without notification"),
		)
	}
	return &StepResult{
		Completed: true,
		Message:   "Import complete",
		Progress:  StepProgress{Processed: completed.Done(), Total: completed.TotalFiles},
	}, nil
}

func failureMessage(err error) string {
	if errors.Is(err, services.ErrParse) {
		return InvalidWorkflowMessage
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "analysis failed"
	}
	return message
}

func failureHint(kind string) string {
	switch kind {
	case "parse":
		return "check that the file is a workflow export with a nodes array"
	case "analysis":
		return "check the analyzer credential and endpoint, then re-import the file"
	default:
		return "check logs for details"
	}
}
