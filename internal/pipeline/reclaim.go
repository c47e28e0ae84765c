package pipeline

import (
	"context"
	"log/slog"

	"flowcatalog/internal/logging"
)

// reclaimStale returns items whose claim is older than the stale threshold to
// pending. A step that died after claiming would otherwise pin its item in
// processing and keep the session from completing.
func (p *Processor) reclaimStale(ctx context.Context, logger *slog.Logger, sessionID string) error {
	if p.staleAfter <= 0 {
		return nil
	}
	cutoff := p.now().Add(-p.staleAfter)
	reclaimed, err := p.store.ReclaimStaleProcessing(ctx, sessionID, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logging.WarnWithContext(logger, "reclaimed stale items", "stale_reclaimed",
			logging.Int64("count", reclaimed),
			logging.Duration("stale_after", p.staleAfter),
			logging.String(logging.FieldErrorHint, "a previous step stopped mid-item; the items will be retried"),
			logging.String(logging.FieldImpact, "items return to the front of the queue"),
		)
	}
	return nil
}
