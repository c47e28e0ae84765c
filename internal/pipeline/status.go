package pipeline

import (
	"context"
	"fmt"

	"flowcatalog/internal/queue"
)

// Progress is a read-only snapshot of a session.
type Progress struct {
	SessionID string
	Status    queue.SessionStatus
	Tag       string
	// ProcessedFiles counts finished items, successful or failed.
	ProcessedFiles int
	FailedFiles    int
	SkippedFiles   int
	TotalFiles     int
	Pending        int
	CurrentFile    string
	Percent        float64
	IsComplete     bool
	HasError       bool
	ErrorMessage   string
}

// Status reports progress for sessionID, or for the most recently started
// active session when sessionID is empty. It returns nil without error when
// sessionID is empty and no session is active.
func (p *Processor) Status(ctx context.Context, sessionID string) (*Progress, error) {
	var (
		session *queue.Session
		err     error
	)
	if sessionID == "" {
		session, err = p.store.ActiveSession(ctx)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, nil
		}
	} else {
		session, err = p.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	progress := &Progress{
		SessionID:      session.ID,
		Status:         session.Status,
		Tag:            session.Tag,
		ProcessedFiles: session.Done(),
		FailedFiles:    session.FailedFiles,
		SkippedFiles:   session.SkippedFiles,
		TotalFiles:     session.TotalFiles,
		IsComplete:     session.Status == queue.SessionCompleted,
		HasError:       session.FailedFiles > 0,
	}
	if session.TotalFiles > 0 {
		progress.Percent = float64(session.Done()) / float64(session.TotalFiles) * 100
	}

	pending, err := p.store.PendingCount(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	progress.Pending = pending

	current, err := p.store.CurrentProcessing(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		progress.CurrentFile = current.FileName
	}

	if progress.HasError {
		failed, err := p.store.LastFailed(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if failed != nil {
			progress.ErrorMessage = fmt.Sprintf("%s: %s", failed.FileName, failed.ErrorMessage)
		}
	}
	return progress, nil
}

// Drain steps sessionID until it completes, calling observe after every step.
// Item failures do not stop the drain; other errors do.
func (p *Processor) Drain(ctx context.Context, sessionID string, observe func(*StepResult)) (*StepResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := p.Step(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if observe != nil {
			observe(result)
		}
		if result.Completed {
			return result, nil
		}
		if !result.Success && result.Error == "" {
			// Another caller holds the last item.
			return result, nil
		}
	}
}
