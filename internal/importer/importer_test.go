package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"flowcatalog/internal/dedup"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/importer"
	"flowcatalog/internal/queue"
	"flowcatalog/internal/services"
	"flowcatalog/internal/testsupport"
)

type fixture struct {
	importer *importer.Importer
	queue    *queue.Store
	catalog  interface {
		Upsert(ctx context.Context, analysis *flow.Analysis, tag string) (string, error)
	}
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	cat := testsupport.MustOpenCatalog(t, cfg)
	return fixture{
		importer: importer.New(cfg, store, cat, nil),
		queue:    store,
		catalog:  cat,
	}
}

func toFiles(in ...testsupport.WorkflowFile) []importer.File {
	files := make([]importer.File, 0, len(in))
	for _, f := range in {
		files = append(files, importer.File{Name: f.Name, Path: f.Path, Content: f.Content})
	}
	return files
}

func TestImportSkipsInBatchDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alerts := testsupport.Workflow(t, "Alerts", "n8n-nodes-base.webhook", "n8n-nodes-base.slack")
	report := testsupport.Workflow(t, "Report", "n8n-nodes-base.cron", "n8n-nodes-base.gmail")
	files := toFiles(
		testsupport.File("alerts.json", alerts),
		testsupport.File("alerts-copy.json", alerts),
		testsupport.File("report.json", report),
	)

	result, err := f.importer.Import(ctx, files, "secret", "batch1")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalFiles)
	require.Equal(t, 1, result.SkippedCount)
	require.NotEmpty(t, result.SessionID)

	session, err := f.queue.GetSession(ctx, result.SessionID)
	require.NoError(t, err)
	require.Equal(t, queue.SessionActive, session.Status)
	require.Equal(t, "secret", session.Credential)
	require.Equal(t, "batch1", session.Tag)
	require.Equal(t, 1, session.SkippedFiles)

	items, err := f.queue.ItemsForSession(ctx, result.SessionID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "alerts.json", items[0].FileName)
	require.Equal(t, "report.json", items[1].FileName)
	key, ok := dedup.FromContent(alerts)
	require.True(t, ok)
	require.Equal(t, key.String(), items[0].DedupKey)
}

func TestImportSkipsCataloguedContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alerts := testsupport.Workflow(t, "Alerts", "n8n-nodes-base.webhook", "n8n-nodes-base.slack")
	key, ok := dedup.FromContent(alerts)
	require.True(t, ok)
	_, err := f.catalog.Upsert(ctx, &flow.Analysis{ID: key.String(), Name: "Alerts"}, "")
	require.NoError(t, err)

	result, err := f.importer.Import(ctx, toFiles(testsupport.File("renamed.json", alerts)), "", "")
	require.ErrorIs(t, err, importer.ErrNothingToImport)
	require.Equal(t, 1, result.SkippedCount)

	sessions, err := f.queue.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sessions)

	other := testsupport.Workflow(t, "Alerts", "n8n-nodes-base.webhook", "n8n-nodes-base.discord")
	result, err = f.importer.Import(ctx, toFiles(
		testsupport.File("alerts.json", alerts),
		testsupport.File("alerts-discord.json", other),
	), "", "")
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalFiles)
	require.Equal(t, 1, result.SkippedCount)
}

func TestImportFallsBackToNameAndPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broken := []byte("not a workflow")
	files := []importer.File{
		{Name: "Broken.json", Path: "/imports/Broken.json", Content: broken},
		{Name: "broken.json", Path: "/IMPORTS/broken.json", Content: broken},
		{Name: "other.json", Path: "/imports/other.json", Content: broken},
	}
	result, err := f.importer.Import(ctx, files, "", "")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalFiles)
	require.Equal(t, 1, result.SkippedCount)

	items, err := f.queue.ItemsForSession(ctx, result.SessionID)
	require.NoError(t, err)
	require.Equal(t, dedup.FallbackKey("Broken.json", "/imports/Broken.json"), items[0].DedupKey)
}

func TestImportFallbackChecksCatalogName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.Upsert(ctx, &flow.Analysis{ID: "x1", Name: "legacy"}, "")
	require.NoError(t, err)

	_, err = f.importer.Import(ctx, []importer.File{
		{Name: "legacy.json", Path: "/imports/legacy.json", Content: []byte("{")},
	}, "", "")
	require.ErrorIs(t, err, importer.ErrNothingToImport)
}

func TestImportAppliesDefaultTag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Import.DefaultTag = "inbox"
	store := testsupport.MustOpenStore(t, cfg)
	cat := testsupport.MustOpenCatalog(t, cfg)
	imp := importer.New(cfg, store, cat, nil)

	result, err := imp.Import(context.Background(), toFiles(
		testsupport.File("a.json", testsupport.Workflow(t, "A", "n8n-nodes-base.webhook")),
	), "", "  ")
	require.NoError(t, err)

	session, err := store.GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Equal(t, "inbox", session.Tag)
	require.Equal(t, "inbox", result.Tag)
}

func TestImportValidation(t *testing.T) {
	valid := testsupport.Workflow(t, "A", "n8n-nodes-base.webhook")
	tests := []struct {
		name  string
		files []importer.File
		tag   string
	}{
		{name: "no files"},
		{name: "missing name", files: []importer.File{{Content: valid}}},
		{name: "empty content", files: []importer.File{{Name: "a.json"}}},
		{name: "bad tag", files: []importer.File{{Name: "a.json", Content: valid}}, tag: "bad tag!"},
		{name: "long tag", files: []importer.File{{Name: "a.json", Content: valid}}, tag: strings.Repeat("t", 51)},
		{name: "too large", files: []importer.File{{Name: "a.json", Content: valid, Size: 1 << 30}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.importer.Import(context.Background(), tt.files, "", tt.tag)
			require.ErrorIs(t, err, services.ErrValidation)

			sessions, err := f.queue.ListSessions(context.Background())
			require.NoError(t, err)
			require.Empty(t, sessions)
		})
	}
}

func TestImportRejectsContentOverConfiguredLimit(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxFileSize(16))
	_, err := f.importer.Import(context.Background(), toFiles(
		testsupport.File("a.json", testsupport.Workflow(t, "A", "n8n-nodes-base.webhook")),
	), "", "")
	require.ErrorIs(t, err, services.ErrValidation)
}
