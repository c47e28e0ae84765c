package pipeline

import (
	"context"
	"log/slog"
	"time"

	"flowcatalog/internal/config"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/logging"
	"flowcatalog/internal/notifications"
	"flowcatalog/internal/queue"
)

// InvalidWorkflowMessage is recorded on items whose content does not parse.
const InvalidWorkflowMessage = "Invalid workflow format"

// Analyzer converts a parsed workflow into a catalog analysis.
type Analyzer interface {
	Analyze(ctx context.Context, wf *flow.Workflow, path, credential string) (*flow.Analysis, error)
}

// Catalog stores analyses.
type Catalog interface {
	Upsert(ctx context.Context, analysis *flow.Analysis, tag string) (string, error)
}

// StepProgress is the session position after a step.
type StepProgress struct {
	Processed int
	Total     int
}

// StepResult describes one step.
type StepResult struct {
	// Completed is set when the session had nothing left and was completed.
	Completed bool
	Success   bool
	// Error holds the failure recorded on the item.
	Error    string
	ItemID   int64
	FileName string
	Workflow *flow.Analysis
	Message  string
	// Discarded is set when the session stopped being active while the item
	// was in flight; the item outcome was recorded but counters were not.
	Discarded bool
	Progress  StepProgress
}

// Option customizes a Processor.
type Option func(*Processor)

// WithParser overrides the workflow parser.
func WithParser(parser flow.Parser) Option {
	return func(p *Processor) {
		if parser != nil {
			p.parser = parser
		}
	}
}

// WithClock overrides the time source used for stale claim detection.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithNotifier publishes session completion through notifier.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Processor) {
		if notifier != nil {
			p.notifier = notifier
		}
	}
}

// Processor runs processing steps against the queue store.
type Processor struct {
	store    *queue.Store
	parser   flow.Parser
	analyzer Analyzer
	catalog  Catalog
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	staleAfter time.Duration
}

// NewProcessor constructs a Processor.
func NewProcessor(cfg *config.Config, store *queue.Store, analyzer Analyzer, catalog Catalog, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		store:    store,
		parser:   flow.JSONParser{},
		analyzer: analyzer,
		catalog:  catalog,
		notifier: notifications.NewService(nil),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
	if cfg != nil && cfg.Import.StaleProcessingSeconds > 0 {
		p.staleAfter = time.Duration(cfg.Import.StaleProcessingSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
