package catalog_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"flowcatalog/internal/catalog"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/testsupport"
)

func analysis(id, name string) *flow.Analysis {
	return &flow.Analysis{
		ID:          id,
		Name:        name,
		Description: "Sends a message",
		Categories:  []string{"Messaging"},
		NodeCount:   2,
		NodeTypes:   []string{"n8n-nodes-base.webhook", "n8n-nodes-base.slack"},
		Triggers:    []string{"n8n-nodes-base.webhook"},
		Complexity:  flow.ComplexityLow,
		FilePath:    "/imports/" + name + ".json",
	}
}

func TestUpsertInsertsAndReadsBack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	id, err := store.Upsert(ctx, analysis("abc", "Alerts"), "batch1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if id != "abc" {
		t.Fatalf("expected id abc, got %q", id)
	}
	entry, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Name != "Alerts" || entry.Tag != "batch1" || entry.NodeCount != 2 {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if !slices.Equal(entry.Categories, []string{"Messaging"}) || len(entry.NodeTypes) != 2 || len(entry.Triggers) != 1 {
		t.Fatalf("unexpected list fields: %#v", entry)
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be parsed")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertSameIDUpdatesInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if _, err := store.Upsert(ctx, analysis("abc", "Alerts"), "batch1"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	first, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	updated := analysis("abc", "Alerts v2")
	updated.Description = "Changed"
	if _, err := store.Upsert(ctx, updated, ""); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single entry, got %d", count)
	}
	entry, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Name != "Alerts v2" || entry.Description != "Changed" {
		t.Fatalf("expected updated fields, got %#v", entry)
	}
	if entry.Tag != "batch1" {
		t.Fatalf("expected tag kept when new tag empty, got %q", entry.Tag)
	}
	if !entry.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected created_at kept, got %v vs %v", entry.CreatedAt, first.CreatedAt)
	}
}

func TestUpsertRequiresIDAndName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if _, err := store.Upsert(ctx, nil, ""); err == nil {
		t.Fatal("expected error for nil analysis")
	}
	if _, err := store.Upsert(ctx, analysis("", "Alerts"), ""); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := store.Upsert(ctx, analysis("abc", "  "), ""); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestExistsAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	for _, a := range []*flow.Analysis{analysis("b1", "Beta"), analysis("a1", "Alpha"), analysis("c1", "Gamma")} {
		tag := "t1"
		if a.ID == "c1" {
			tag = "t2"
		}
		if _, err := store.Upsert(ctx, a, tag); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	exists, err := store.ExistsByID(ctx, "a1")
	if err != nil || !exists {
		t.Fatalf("expected a1 to exist: %v %v", exists, err)
	}
	exists, err = store.ExistsByName(ctx, "Gamma")
	if err != nil || !exists {
		t.Fatalf("expected Gamma to exist: %v %v", exists, err)
	}
	exists, err = store.ExistsByName(ctx, "Delta")
	if err != nil || exists {
		t.Fatalf("expected Delta to be absent: %v %v", exists, err)
	}

	all, err := store.List(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "Alpha" || all[2].Name != "Gamma" {
		t.Fatalf("unexpected list order: %#v", all)
	}
	tagged, err := store.List(ctx, catalog.ListOptions{Tag: "t1", Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tagged) != 1 || tagged[0].Name != "Alpha" {
		t.Fatalf("unexpected filtered list: %#v", tagged)
	}
}

func TestDeleteByTag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	for _, id := range []string{"x1", "x2"} {
		if _, err := store.Upsert(ctx, analysis(id, "Flow "+id), "batch1"); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if _, err := store.Upsert(ctx, analysis("y1", "Keep"), "other"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	ids, err := store.IDsByTag(ctx, "batch1")
	if err != nil {
		t.Fatalf("IDsByTag failed: %v", err)
	}
	if !slices.Equal(ids, []string{"x1", "x2"}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	removed, err := store.DeleteByTag(ctx, "batch1")
	if err != nil {
		t.Fatalf("DeleteByTag failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry left, got %d", count)
	}
}

func TestDeleteNonRepresentativeKeepsSmallestID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	for _, a := range []*flow.Analysis{
		analysis("k2", "Report"),
		analysis("k1", "Report"),
		analysis("k3", "Report"),
		analysis("z9", "Solo"),
	} {
		if _, err := store.Upsert(ctx, a, ""); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	ids, err := store.NonRepresentativeIDs(ctx)
	if err != nil {
		t.Fatalf("NonRepresentativeIDs failed: %v", err)
	}
	if !slices.Equal(ids, []string{"k2", "k3"}) {
		t.Fatalf("unexpected non-representative ids: %v", ids)
	}
	removed, err := store.DeleteNonRepresentativeByName(ctx)
	if err != nil {
		t.Fatalf("DeleteNonRepresentativeByName failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	entries, err := store.List(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "k1" || entries[1].ID != "z9" {
		t.Fatalf("unexpected survivors: %#v", entries)
	}

	removed, err = store.DeleteNonRepresentativeByName(ctx)
	if err != nil {
		t.Fatalf("second DeleteNonRepresentativeByName failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected idempotent second pass, removed %d", removed)
	}
}

func TestRenameDuplicateNamesSuffixesInUpdateOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	// Inserted in this order, so updated_at increases down the list.
	for _, a := range []*flow.Analysis{
		analysis("a", "Sync"),
		analysis("b", "Sync"),
		analysis("c", "Sync"),
		analysis("d", "Sync (1)"),
	} {
		if _, err := store.Upsert(ctx, a, ""); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	renamed, err := store.RenameDuplicateNames(ctx)
	if err != nil {
		t.Fatalf("RenameDuplicateNames failed: %v", err)
	}
	if renamed != 2 {
		t.Fatalf("expected 2 renamed, got %d", renamed)
	}
	want := map[string]string{"a": "Sync", "b": "Sync (2)", "c": "Sync (3)", "d": "Sync (1)"}
	for id, name := range want {
		entry, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %s failed: %v", id, err)
		}
		if entry.Name != name {
			t.Fatalf("entry %s: expected %q, got %q", id, name, entry.Name)
		}
	}

	renamed, err = store.RenameDuplicateNames(ctx)
	if err != nil {
		t.Fatalf("second RenameDuplicateNames failed: %v", err)
	}
	if renamed != 0 {
		t.Fatalf("expected no renames on second pass, got %d", renamed)
	}
}

func TestRenameUnknownEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	if err := store.Rename(context.Background(), "missing", "x"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
