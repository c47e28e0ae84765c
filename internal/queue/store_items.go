package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func insertItem(ctx context.Context, tx *sql.Tx, sessionID string, item NewItem, now string) error {
	if item.FileName == "" {
		return errors.New("enqueue: file name required")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_queue (session_id, file_name, file_path, file_content, file_size, dedup_key, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, item.FileName, item.FilePath, item.Content, item.Size, nullableString(item.DedupKey), StatusPending, now,
	); err != nil {
		return fmt.Errorf("insert queue item %q: %w", item.FileName, err)
	}
	return nil
}

// Enqueue adds a pending item to an active session.
func (s *Store) Enqueue(ctx context.Context, sessionID string, item NewItem) (*Item, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM import_sessions WHERE id = ?`, sessionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return fmt.Errorf("lookup session: %w", err)
		}
		if SessionStatus(status) != SessionActive {
			return fmt.Errorf("%w: session %s is %s", ErrInvalidState, sessionID, status)
		}
		if err := insertItem(ctx, tx, sessionID, item, s.timestamp()); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT last_insert_rowid()`).Scan(&id)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// GetItem fetches a queue item by id, including its content.
func (s *Store) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM import_queue WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// NextPending returns the oldest pending item of a session, or nil.
func (s *Store) NextPending(ctx context.Context, sessionID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM import_queue
         WHERE session_id = ? AND status = ? ORDER BY id LIMIT 1`,
		sessionID, StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// ClaimNext atomically moves the oldest pending item of a session to
// processing and returns it, or nil when nothing is pending. Concurrent
// callers never receive the same item.
func (s *Store) ClaimNext(ctx context.Context, sessionID string) (*Item, error) {
	var item *Item
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE import_queue SET status = ?, claimed_at = ?
             WHERE id = (
                 SELECT id FROM import_queue
                 WHERE session_id = ? AND status = ? ORDER BY id LIMIT 1
             ) AND status = ?
             RETURNING `+itemColumns,
			StatusProcessing, s.timestamp(), sessionID, StatusPending, StatusPending,
		)
		claimed, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			item = nil
			return nil
		}
		if err != nil {
			return err
		}
		item = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next item: %w", err)
	}
	return item, nil
}

// Mark records an item's new status. Terminal statuses stamp processed_at;
// processing stamps claimed_at. Completed records opts.WorkflowID and failed
// records opts.ErrorMessage. Items already in a terminal status are not
// changed.
func (s *Store) Mark(ctx context.Context, itemID int64, status Status, opts MarkOptions) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return fmt.Errorf("%w: unknown item status %q", ErrInvalidState, status)
	}
	now := s.timestamp()
	var (
		claimedAt   any
		processedAt any
		workflowID  any
		errorMsg    any
	)
	switch status {
	case StatusProcessing:
		claimedAt = now
	case StatusCompleted:
		processedAt = now
		workflowID = nullableString(opts.WorkflowID)
	case StatusFailed:
		processedAt = now
		errorMsg = nullableString(opts.ErrorMessage)
	case StatusCancelled:
		processedAt = now
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE import_queue
         SET status = ?, claimed_at = COALESCE(?, claimed_at), processed_at = ?,
             workflow_id = ?, error_message = ?
         WHERE id = ? AND status IN (?, ?)`,
		status, claimedAt, processedAt, workflowID, errorMsg,
		itemID, StatusPending, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark item %d %s: %w", itemID, status, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var current string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM import_queue WHERE id = ?`, itemID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
		}
		if err != nil {
			return fmt.Errorf("lookup item: %w", err)
		}
		return fmt.Errorf("%w: item %d is already %s", ErrInvalidState, itemID, current)
	}
	return nil
}

// PendingCount returns how many items of a session are still pending.
func (s *Store) PendingCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM import_queue WHERE session_id = ? AND status = ?`,
		sessionID, StatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return count, nil
}

// CurrentProcessing returns the most recently created processing item of a
// session, or nil. Content is not loaded.
func (s *Store) CurrentProcessing(ctx context.Context, sessionID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemSummaryColumns+` FROM import_queue
         WHERE session_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		sessionID, StatusProcessing,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current processing: %w", err)
	}
	return item, nil
}

// LastFailed returns the most recently finished failed item of a session, or nil.
func (s *Store) LastFailed(ctx context.Context, sessionID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemSummaryColumns+` FROM import_queue
         WHERE session_id = ? AND status = ? ORDER BY processed_at DESC, id DESC LIMIT 1`,
		sessionID, StatusFailed,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last failed: %w", err)
	}
	return item, nil
}

// ItemsForSession lists a session's items in queue order without content,
// optionally filtered by status.
func (s *Store) ItemsForSession(ctx context.Context, sessionID string, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemSummaryColumns + ` FROM import_queue WHERE session_id = ?`
	args := []any{sessionID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReclaimStaleProcessing returns a session's items that have been processing
// since before cutoff to pending, so a step that died mid-item does not leave
// the session stuck.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, sessionID string, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE import_queue SET status = ?, claimed_at = NULL
         WHERE session_id = ? AND status = ? AND (claimed_at IS NULL OR claimed_at < ?)`,
		StatusPending, sessionID, StatusProcessing, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}
