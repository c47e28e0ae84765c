package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"flowcatalog/internal/queue"
	"flowcatalog/internal/testsupport"
)

func newItems(n int) []queue.NewItem {
	items := make([]queue.NewItem, 0, n)
	for i := range n {
		items = append(items, queue.NewItem{
			FileName: fmt.Sprintf("flow-%02d.json", i),
			FilePath: fmt.Sprintf("/imports/flow-%02d.json", i),
			Content:  []byte(fmt.Sprintf(`{"name":"flow %d","nodes":[]}`, i)),
			Size:     int64(20 + i),
			DedupKey: fmt.Sprintf("key%d", i),
		})
	}
	return items
}

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database, got %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("unexpected missing tables: %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestCreateSessionStartsActiveWithZeroCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSession(ctx, 3, "secret", "batch1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session id to be assigned")
	}
	if session.Status != queue.SessionActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}
	if session.TotalFiles != 3 || session.ProcessedFiles != 0 || session.FailedFiles != 0 || session.SkippedFiles != 0 {
		t.Fatalf("unexpected counters: %#v", session)
	}
	if session.Credential != "secret" || session.Tag != "batch1" {
		t.Fatalf("unexpected credential/tag: %q %q", session.Credential, session.Tag)
	}
	if session.CompletedAt != nil {
		t.Fatal("expected completed_at unset")
	}

	active, err := store.ActiveSession(ctx)
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active == nil || active.ID != session.ID {
		t.Fatalf("expected active session %s, got %#v", session.ID, active)
	}
}

func TestGetSessionUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.GetSession(context.Background(), "missing")
	if !errors.Is(err, queue.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestActiveSessionNoneReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	active, err := store.ActiveSession(context.Background())
	if err != nil {
		t.Fatalf("ActiveSession failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active session, got %#v", active)
	}
}

func TestNextPendingIsFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 3}, newItems(3))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}

	for i := range 3 {
		next, err := store.NextPending(ctx, session.ID)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		want := fmt.Sprintf("flow-%02d.json", i)
		if next == nil || next.FileName != want {
			t.Fatalf("expected %s, got %#v", want, next)
		}
		if string(next.FileContent) == "" {
			t.Fatal("expected content to be loaded")
		}
		if err := store.Mark(ctx, next.ID, queue.StatusCompleted, queue.MarkOptions{WorkflowID: "wf"}); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}
	next, err := store.NextPending(ctx, session.ID)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected empty queue, got %#v", next)
	}
}

func TestEnqueueRejectsInactiveSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSession(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, session.ID, newItems(1)[0]); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.CancelSession(ctx, session.ID); err != nil {
		t.Fatalf("CancelSession failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, session.ID, newItems(1)[0]); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := store.Enqueue(ctx, "missing", newItems(1)[0]); !errors.Is(err, queue.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMarkStampsTimestamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 2}, newItems(2))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	items, err := store.ItemsForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ItemsForSession failed: %v", err)
	}

	if err := store.Mark(ctx, items[0].ID, queue.StatusProcessing, queue.MarkOptions{}); err != nil {
		t.Fatalf("Mark processing failed: %v", err)
	}
	processing, err := store.GetItem(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if processing.ClaimedAt == nil || processing.ProcessedAt != nil {
		t.Fatalf("expected claimed_at only, got %#v", processing)
	}

	if err := store.Mark(ctx, items[0].ID, queue.StatusCompleted, queue.MarkOptions{WorkflowID: "abc"}); err != nil {
		t.Fatalf("Mark completed failed: %v", err)
	}
	done, err := store.GetItem(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if done.ProcessedAt == nil || done.WorkflowID != "abc" || done.ClaimedAt == nil {
		t.Fatalf("unexpected completed item: %#v", done)
	}

	if err := store.Mark(ctx, items[1].ID, queue.StatusFailed, queue.MarkOptions{ErrorMessage: "boom"}); err != nil {
		t.Fatalf("Mark failed failed: %v", err)
	}
	failed, err := store.GetItem(ctx, items[1].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if failed.ErrorMessage != "boom" || failed.ProcessedAt == nil {
		t.Fatalf("unexpected failed item: %#v", failed)
	}

	if err := store.Mark(ctx, items[1].ID, queue.StatusCompleted, queue.MarkOptions{}); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for terminal item, got %v", err)
	}
	if err := store.Mark(ctx, 9999, queue.StatusCompleted, queue.MarkOptions{}); !errors.Is(err, queue.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestClaimNextNeverHandsOutSameItemTwice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const total = 20
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: total}, newItems(total))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}

	var (
		mu      sync.Mutex
		claimed = make(map[int64]int)
		wg      sync.WaitGroup
		errs    = make(chan error, 4)
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, err := store.ClaimNext(ctx, session.ID)
				if err != nil {
					errs <- err
					return
				}
				if item == nil {
					return
				}
				mu.Lock()
				claimed[item.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	if len(claimed) != total {
		t.Fatalf("expected %d distinct claims, got %d", total, len(claimed))
	}
	for id, count := range claimed {
		if count != 1 {
			t.Fatalf("item %d claimed %d times", id, count)
		}
	}
	pending, err := store.PendingCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending items, got %d", pending)
	}
}

func TestClaimNextFollowsQueueOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 2}, newItems(2))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	first, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if first.FileName != "flow-00.json" || first.Status != queue.StatusProcessing || first.ClaimedAt == nil {
		t.Fatalf("unexpected first claim: %#v", first)
	}
	current, err := store.CurrentProcessing(ctx, session.ID)
	if err != nil {
		t.Fatalf("CurrentProcessing failed: %v", err)
	}
	if current == nil || current.ID != first.ID {
		t.Fatalf("expected current processing %d, got %#v", first.ID, current)
	}
	second, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if second.FileName != "flow-01.json" {
		t.Fatalf("expected second item, got %s", second.FileName)
	}
}

func TestCancelSessionCancelsPendingOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 3}, newItems(3))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	inFlight, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	cancelled, err := store.CancelSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("CancelSession failed: %v", err)
	}
	if cancelled.Status != queue.SessionCancelled || cancelled.CompletedAt == nil {
		t.Fatalf("unexpected cancelled session: %#v", cancelled)
	}

	items, err := store.ItemsForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ItemsForSession failed: %v", err)
	}
	for _, item := range items {
		if item.ID == inFlight.ID {
			if item.Status != queue.StatusProcessing {
				t.Fatalf("expected in-flight item left processing, got %s", item.Status)
			}
			continue
		}
		if item.Status != queue.StatusCancelled || item.ProcessedAt == nil {
			t.Fatalf("expected pending item cancelled, got %#v", item)
		}
	}

	if _, err := store.CancelSession(ctx, session.ID); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second cancel, got %v", err)
	}
	if _, err := store.IncrementCounters(ctx, session.ID, 1, 0); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected increment refused after cancel, got %v", err)
	}
	if _, err := store.CancelSession(ctx, "missing"); !errors.Is(err, queue.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestIncrementCountersGuardsTotal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSession(ctx, 2, "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	updated, err := store.IncrementCounters(ctx, session.ID, 1, 0)
	if err != nil {
		t.Fatalf("IncrementCounters failed: %v", err)
	}
	if updated.ProcessedFiles != 1 || updated.FailedFiles != 0 {
		t.Fatalf("unexpected counters: %#v", updated)
	}
	updated, err = store.IncrementCounters(ctx, session.ID, 0, 1)
	if err != nil {
		t.Fatalf("IncrementCounters failed: %v", err)
	}
	if updated.Done() != 2 {
		t.Fatalf("expected done=2, got %d", updated.Done())
	}
	if _, err := store.IncrementCounters(ctx, session.ID, 1, 0); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState past total, got %v", err)
	}
	if _, err := store.IncrementCounters(ctx, session.ID, -1, 0); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for negative increment, got %v", err)
	}
	if _, err := store.IncrementCounters(ctx, "missing", 1, 0); !errors.Is(err, queue.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateSessionRejectsNonActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSession(ctx, 4, "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	skipped := 2
	updated, err := store.UpdateSession(ctx, session.ID, queue.SessionUpdate{Skipped: &skipped})
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if updated.SkippedFiles != 2 {
		t.Fatalf("expected skipped=2, got %d", updated.SkippedFiles)
	}

	tooMany := 5
	if _, err := store.UpdateSession(ctx, session.ID, queue.SessionUpdate{Processed: &tooMany}); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for processed > total, got %v", err)
	}

	completed, err := store.CompleteSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if completed.Status != queue.SessionCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed session: %#v", completed)
	}
	if _, err := store.UpdateSession(ctx, session.ID, queue.SessionUpdate{Skipped: &skipped}); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after completion, got %v", err)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 2}, newItems(2))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, session.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected fresh claim kept, reclaimed %d", count)
	}

	count, err = store.ReclaimStaleProcessing(ctx, session.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}
	item, err := store.GetItem(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Status != queue.StatusPending || item.ClaimedAt != nil {
		t.Fatalf("expected item back to pending, got %#v", item)
	}
	next, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if next.ID != claimed.ID {
		t.Fatalf("expected reclaimed item to be claimed first, got %d", next.ID)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 3, Credential: "k"}, newItems(3))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	first, err := store.ClaimNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if err := store.Mark(ctx, first.ID, queue.StatusCompleted, queue.MarkOptions{WorkflowID: "w1"}); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	restored, err := reopened.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession after reopen failed: %v", err)
	}
	if restored.Credential != "k" || restored.TotalFiles != 3 {
		t.Fatalf("unexpected restored session: %#v", restored)
	}

	var drained []string
	for {
		item, err := reopened.ClaimNext(ctx, session.ID)
		if err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}
		if item == nil {
			break
		}
		drained = append(drained, item.FileName)
		if err := reopened.Mark(ctx, item.ID, queue.StatusCompleted, queue.MarkOptions{}); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}
	if len(drained) != 2 || drained[0] != "flow-01.json" || drained[1] != "flow-02.json" {
		t.Fatalf("unexpected drain order: %v", drained)
	}
}

func TestDeleteSessionCascadesToItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 2}, newItems(2))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	items, err := store.ItemsForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ItemsForSession failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected items removed, got %d", len(items))
	}
	if err := store.DeleteSession(ctx, session.ID); !errors.Is(err, queue.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestClearFinishedSessionsKeepsActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done, err := store.CreateSession(ctx, 0, "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.CompleteSession(ctx, done.ID); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	active, err := store.CreateSession(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	removed, err := store.ClearFinishedSessions(ctx)
	if err != nil {
		t.Fatalf("ClearFinishedSessions failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", removed)
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != active.ID {
		t.Fatalf("expected only active session left, got %#v", sessions)
	}
}

func TestDeleteByWorkflowIDsAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSessionWithItems(ctx, queue.NewSession{TotalFiles: 3}, newItems(3))
	if err != nil {
		t.Fatalf("CreateSessionWithItems failed: %v", err)
	}
	items, err := store.ItemsForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ItemsForSession failed: %v", err)
	}
	for idx, item := range items[:2] {
		if err := store.Mark(ctx, item.ID, queue.StatusCompleted, queue.MarkOptions{WorkflowID: fmt.Sprintf("wf%d", idx)}); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx, session.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusCompleted] != 2 || stats[queue.StatusPending] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.DeleteByWorkflowIDs(ctx, []string{"wf0", "other"})
	if err != nil {
		t.Fatalf("DeleteByWorkflowIDs failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}
	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Completed != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}

	purged, err := store.PurgeContent(ctx)
	if err != nil {
		t.Fatalf("PurgeContent failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 item purged, got %d", purged)
	}
}
