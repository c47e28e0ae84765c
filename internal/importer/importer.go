package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"flowcatalog/internal/config"
	"flowcatalog/internal/dedup"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/logging"
	"flowcatalog/internal/queue"
	"flowcatalog/internal/services"
)

// ErrNothingToImport is returned when every file in a batch was skipped.
var ErrNothingToImport = errors.New("all workflows already imported")

// File is one workflow export handed to Import.
type File struct {
	Name    string
	Path    string
	Content []byte
	// Size defaults to len(Content) when zero.
	Size int64
}

// Result summarizes a created session.
type Result struct {
	SessionID    string `json:"session_id,omitempty"`
	TotalFiles   int    `json:"total_files"`
	SkippedCount int    `json:"skipped_count"`
	Tag          string `json:"tag,omitempty"`
}

// Catalog is the catalog lookup used to skip already imported workflows.
type Catalog interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// Sessions creates import sessions.
type Sessions interface {
	CreateSessionWithItems(ctx context.Context, ns queue.NewSession, items []queue.NewItem) (*queue.Session, error)
}

// Importer creates sessions from file batches.
type Importer struct {
	cfg      *config.Config
	sessions Sessions
	catalog  Catalog
	logger   *slog.Logger
}

// New constructs an Importer.
func New(cfg *config.Config, sessions Sessions, catalog Catalog, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		cfg:      cfg,
		sessions: sessions,
		catalog:  catalog,
		logger:   logging.NewComponentLogger(logger, "importer"),
	}
}

type keyedFile struct {
	key       string
	catalogue bool
}

// Import validates files, drops duplicates, and creates an active session
// holding the rest in input order.
func (i *Importer) Import(ctx context.Context, files []File, credential, tag string) (Result, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = i.cfg.Import.DefaultTag
	}
	if err := i.validate(files, tag); err != nil {
		return Result{}, err
	}

	keyed, err := i.keyFiles(ctx, files)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[string]struct{}, len(files))
	items := make([]queue.NewItem, 0, len(files))
	skipped := 0
	for idx, file := range files {
		k := keyed[idx]
		if _, dup := seen[k.key]; dup {
			i.logger.Debug("skipping duplicate in batch",
				logging.FileName(file.Name),
				logging.String("dedup_key", k.key),
			)
			skipped++
			continue
		}
		seen[k.key] = struct{}{}
		if k.catalogue {
			i.logger.Debug("skipping already catalogued workflow",
				logging.FileName(file.Name),
				logging.String("dedup_key", k.key),
			)
			skipped++
			continue
		}
		size := file.Size
		if size == 0 {
			size = int64(len(file.Content))
		}
		items = append(items, queue.NewItem{
			FileName: file.Name,
			FilePath: file.Path,
			Content:  file.Content,
			Size:     size,
			DedupKey: k.key,
		})
	}

	if len(items) == 0 {
		i.logger.Info("nothing to import",
			logging.Event("import_skipped"),
			logging.Int("skipped", skipped),
		)
		return Result{SkippedCount: skipped}, ErrNothingToImport
	}

	session, err := i.sessions.CreateSessionWithItems(ctx, queue.NewSession{
		TotalFiles:   len(items),
		SkippedFiles: skipped,
		Credential:   credential,
		Tag:          tag,
	}, items)
	if err != nil {
		return Result{}, fmt.Errorf("import: %w", err)
	}

	i.logger.Info("import session created",
		logging.Event("import_created"),
		logging.SessionID(session.ID),
		logging.Int("total_files", session.TotalFiles),
		logging.Int("skipped", session.SkippedFiles),
		logging.Tag(tag),
	)
	return Result{
		SessionID:    session.ID,
		TotalFiles:   session.TotalFiles,
		SkippedCount: session.SkippedFiles,
		Tag:          session.Tag,
	}, nil
}

func (i *Importer) validate(files []File, tag string) error {
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "importer", "validate", "no files provided", nil)
	}
	if err := config.ValidateTag(tag, i.cfg.Import.MaxTagLength); err != nil {
		return services.Wrap(services.ErrValidation, "importer", "validate", "invalid tag", err)
	}
	for idx, file := range files {
		if strings.TrimSpace(file.Name) == "" {
			return services.Wrap(services.ErrValidation, "importer", "validate",
				fmt.Sprintf("file %d has no name", idx+1), nil)
		}
		if len(file.Content) == 0 {
			return services.Wrap(services.ErrValidation, "importer", "validate",
				fmt.Sprintf("%s is empty", file.Name), nil)
		}
		size := max(file.Size, int64(len(file.Content)))
		if size > i.cfg.Import.MaxFileSize {
			return services.Wrap(services.ErrValidation, "importer", "validate",
				fmt.Sprintf("%s is %d bytes, limit is %d", file.Name, size, i.cfg.Import.MaxFileSize), nil)
		}
	}
	return nil
}

// keyFiles computes each file's key and catalog membership concurrently.
// Results are indexed by input position.
func (i *Importer) keyFiles(ctx context.Context, files []File) ([]keyedFile, error) {
	keyed := make([]keyedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file := files[idx]
			if key, ok := dedup.FromContent(file.Content); ok {
				exists, err := i.catalog.ExistsByID(gctx, key.String())
				if err != nil {
					return fmt.Errorf("%s: catalog lookup: %w", file.Name, err)
				}
				keyed[idx] = keyedFile{key: key.String(), catalogue: exists}
				return nil
			}
			exists, err := i.catalog.ExistsByName(gctx, flow.DisplayName(nil, file.Name))
			if err != nil {
				return fmt.Errorf("%s: catalog lookup: %w", file.Name, err)
			}
			keyed[idx] = keyedFile{key: dedup.FallbackKey(file.Name, file.Path), catalogue: exists}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return keyed, nil
}
