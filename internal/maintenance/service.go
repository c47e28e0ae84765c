package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"flowcatalog/internal/logging"
	"flowcatalog/internal/services"
)

// Catalog is the catalog surface maintenance needs.
type Catalog interface {
	IDsByTag(ctx context.Context, tag string) ([]string, error)
	DeleteByTag(ctx context.Context, tag string) (int, error)
	NonRepresentativeIDs(ctx context.Context) ([]string, error)
	DeleteNonRepresentativeByName(ctx context.Context) (int, error)
	RenameDuplicateNames(ctx context.Context) (int, error)
}

// Queue removes queue rows that reference catalog entries.
type Queue interface {
	DeleteByWorkflowIDs(ctx context.Context, workflowIDs []string) (int64, error)
}

// Service runs maintenance operations.
type Service struct {
	catalog Catalog
	queue   Queue
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(catalog Catalog, queue Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		catalog: catalog,
		queue:   queue,
		logger:  logging.NewComponentLogger(logger, "maintenance"),
	}
}

// DeleteByTag removes the entries tagged tag and the queue rows that
// reference them. It returns the number of entries removed.
func (s *Service) DeleteByTag(ctx context.Context, tag string) (int, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return 0, services.Wrap(services.ErrValidation, "maintenance", "delete by tag", "tag required", nil)
	}
	ids, err := s.catalog.IDsByTag(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	rows, err := s.queue.DeleteByWorkflowIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	removed, err := s.catalog.DeleteByTag(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	s.logger.Info("deleted workflows by tag",
		logging.Event("catalog_delete_tag"),
		logging.Tag(tag),
		logging.Int("entries", removed),
		logging.Int64("queue_rows", rows),
	)
	return removed, nil
}

// DeleteDuplicates keeps one entry per name, the one with the smallest id,
// and removes the rest with their queue references. It returns the number of
// entries removed.
func (s *Service) DeleteDuplicates(ctx context.Context) (int, error) {
	ids, err := s.catalog.NonRepresentativeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	rows, err := s.queue.DeleteByWorkflowIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	removed, err := s.catalog.DeleteNonRepresentativeByName(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	s.logger.Info("deleted duplicate workflows",
		logging.Event("catalog_dedupe"),
		logging.Int("entries", removed),
		logging.Int64("queue_rows", rows),
	)
	return removed, nil
}

// FixDuplicateNames gives every entry sharing a name a distinct " (n)"
// suffix, leaving the earliest-updated entry of each name unchanged. It
// returns the number of entries renamed.
func (s *Service) FixDuplicateNames(ctx context.Context) (int, error) {
	renamed, err := s.catalog.RenameDuplicateNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("fix duplicate names: %w", err)
	}
	if renamed > 0 {
		s.logger.Info("renamed duplicate workflows",
			logging.Event("catalog_rename"),
			logging.Int("entries", renamed),
		)
	}
	return renamed, nil
}
