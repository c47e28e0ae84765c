package testsupport

import (
	"context"
	"testing"

	"flowcatalog/internal/catalog"
	"flowcatalog/internal/config"
	"flowcatalog/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates an active session whose items hold the given workflow
// files, in order.
func NewSession(t testing.TB, store *queue.Store, tag string, files ...WorkflowFile) (*queue.Session, []*queue.Item) {
	t.Helper()

	ctx := context.Background()
	items := make([]queue.NewItem, 0, len(files))
	for _, file := range files {
		items = append(items, queue.NewItem{
			FileName: file.Name,
			FilePath: file.Path,
			Content:  file.Content,
			Size:     int64(len(file.Content)),
			DedupKey: file.Key(),
		})
	}
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{
		TotalFiles: len(files),
		Credential: "test-key",
		Tag:        tag,
	}, items)
	if err != nil {
		t.Fatalf("store.CreateSessionWithItems: %v", err)
	}
	queued, err := store.ItemsForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("store.ItemsForSession: %v", err)
	}
	return session, queued
}
