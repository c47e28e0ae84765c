package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateSession starts an active session with zero counters.
func (s *Store) CreateSession(ctx context.Context, total int, credential, tag string) (*Session, error) {
	return s.CreateSessionWithItems(ctx, NewSession{TotalFiles: total, Credential: credential, Tag: tag}, nil)
}

// CreateSessionWithItems creates a session, records its skipped count, and
// enqueues items in input order as one transaction, so a crash during intake
// never leaves a session whose total disagrees with its queue.
func (s *Store) CreateSessionWithItems(ctx context.Context, ns NewSession, items []NewItem) (*Session, error) {
	if ns.TotalFiles < 0 || ns.SkippedFiles < 0 {
		return nil, fmt.Errorf("create session: negative counts (total=%d skipped=%d)", ns.TotalFiles, ns.SkippedFiles)
	}
	id := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_sessions (id, total_files, skipped_files, status, credential, tag, started_at, last_update)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ns.TotalFiles, ns.SkippedFiles, SessionActive, nullableString(ns.Credential), ns.Tag, now, now,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for _, item := range items {
			if err := insertItem(ctx, tx, id, item, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM import_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ActiveSession returns the most recently started active session, or nil.
func (s *Store) ActiveSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM import_sessions
         WHERE status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		SessionActive,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (s *Store) ListSessions(ctx context.Context, statuses ...SessionStatus) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM import_sessions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY started_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSession applies a partial update to an active session. Counters are
// caller-driven; the store only enforces processed+failed <= total. Setting
// the status to cancelled behaves like CancelSession.
func (s *Store) UpdateSession(ctx context.Context, id string, update SessionUpdate) (*Session, error) {
	if update.Status != nil {
		switch *update.Status {
		case SessionActive, SessionCompleted, SessionCancelled:
		default:
			return nil, fmt.Errorf("%w: unknown session status %q", ErrInvalidState, *update.Status)
		}
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateSessionTx(ctx, tx, id, update)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

func (s *Store) updateSessionTx(ctx context.Context, tx *sql.Tx, id string, update SessionUpdate) error {
	now := s.timestamp()
	sets := []string{"last_update = ?"}
	args := []any{now}
	if update.Processed != nil {
		sets = append(sets, "processed_files = ?")
		args = append(args, *update.Processed)
	}
	if update.Failed != nil {
		sets = append(sets, "failed_files = ?")
		args = append(args, *update.Failed)
	}
	if update.Skipped != nil {
		sets = append(sets, "skipped_files = ?")
		args = append(args, *update.Skipped)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
		if *update.Status != SessionActive {
			sets = append(sets, "completed_at = ?")
			args = append(args, now)
		}
	}
	args = append(args, id, SessionActive, nullableInt(update.Processed), nullableInt(update.Failed))

	res, err := tx.ExecContext(ctx,
		`UPDATE import_sessions SET `+strings.Join(sets, ", ")+`
         WHERE id = ? AND status = ?
           AND COALESCE(?, processed_files) + COALESCE(?, failed_files) <= total_files`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return s.explainSessionMiss(ctx, tx, id)
	}

	if update.Status != nil && *update.Status == SessionCancelled {
		if _, err := tx.ExecContext(ctx,
			`UPDATE import_queue SET status = ?, processed_at = ? WHERE session_id = ? AND status = ?`,
			StatusCancelled, now, id, StatusPending,
		); err != nil {
			return fmt.Errorf("cancel pending items: %w", err)
		}
	}
	return nil
}

// explainSessionMiss converts a guarded update that matched no rows into the
// specific reason.
func (s *Store) explainSessionMiss(ctx context.Context, tx *sql.Tx, id string) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM import_sessions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if SessionStatus(status) != SessionActive {
		return fmt.Errorf("%w: session %s is %s", ErrInvalidState, id, status)
	}
	return fmt.Errorf("%w: session %s counters would exceed total files", ErrInvalidState, id)
}

// IncrementCounters atomically adds to the processed and failed counters of an
// active session. The increment is refused once the session has left the
// active state, so a step that finishes after cancellation cannot move the
// counters.
func (s *Store) IncrementCounters(ctx context.Context, id string, processed, failed int) (*Session, error) {
	if processed < 0 || failed < 0 {
		return nil, fmt.Errorf("%w: counters only increase", ErrInvalidState)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE import_sessions
             SET processed_files = processed_files + ?, failed_files = failed_files + ?, last_update = ?
             WHERE id = ? AND status = ? AND processed_files + failed_files + ? + ? <= total_files`,
			processed, failed, s.timestamp(), id, SessionActive, processed, failed,
		)
		if err != nil {
			return fmt.Errorf("increment counters: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return s.explainSessionMiss(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// CancelSession marks an active session cancelled and moves every pending
// item to cancelled in one transaction. An item already processing is left to
// finish or fail.
func (s *Store) CancelSession(ctx context.Context, id string) (*Session, error) {
	status := SessionCancelled
	return s.UpdateSession(ctx, id, SessionUpdate{Status: &status})
}

// CompleteSession marks an active session completed.
func (s *Store) CompleteSession(ctx context.Context, id string) (*Session, error) {
	status := SessionCompleted
	return s.UpdateSession(ctx, id, SessionUpdate{Status: &status})
}

// DeleteSession removes a session and, through the foreign key cascade, its items.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM import_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// ClearFinishedSessions deletes completed and cancelled sessions with their
// items, releasing retained file content.
func (s *Store) ClearFinishedSessions(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM import_sessions WHERE status IN (?, ?)`,
		SessionCompleted, SessionCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("clear finished sessions: %w", err)
	}
	return res.RowsAffected()
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
