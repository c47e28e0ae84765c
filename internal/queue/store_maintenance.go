package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of items grouped by status, across every session or
// only sessionID when it is set.
func (s *Store) Stats(ctx context.Context, sessionID string) (map[Status]int, error) {
	query := `SELECT status, COUNT(1) FROM import_queue`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates item state across all sessions.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx, "")
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{
		Pending:    stats[StatusPending],
		Processing: stats[StatusProcessing],
		Completed:  stats[StatusCompleted],
		Failed:     stats[StatusFailed],
		Cancelled:  stats[StatusCancelled],
	}
	for _, count := range stats {
		health.Total += count
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	for _, table := range requiredTables {
		var count int
		if err := s.db.QueryRowContext(connCtx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&count); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
		if count == 0 {
			health.MissingTables = append(health.MissingTables, table)
		}
	}
	if len(health.MissingTables) == 0 {
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM import_sessions").Scan(&health.TotalSessions); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count sessions: %w", err)
		}
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM import_queue").Scan(&health.TotalItems); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count queue items: %w", err)
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}

// DeleteByWorkflowIDs removes queue rows whose workflow_id references one of
// the given catalog entries.
func (s *Store) DeleteByWorkflowIDs(ctx context.Context, workflowIDs []string) (int64, error) {
	if len(workflowIDs) == 0 {
		return 0, nil
	}
	var total int64
	// Stay well under SQLite's bound-parameter limit.
	const batch = 500
	for start := 0; start < len(workflowIDs); start += batch {
		chunk := workflowIDs[start:min(start+batch, len(workflowIDs))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		res, err := s.execWithRetry(ctx,
			`DELETE FROM import_queue WHERE workflow_id IN (`+makePlaceholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return total, fmt.Errorf("delete queue rows by workflow: %w", err)
		}
		affected, _ := res.RowsAffected()
		total += affected
	}
	return total, nil
}

// PurgeContent drops the retained file content of items in a terminal status.
func (s *Store) PurgeContent(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE import_queue SET file_content = NULL
         WHERE file_content IS NOT NULL AND status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("purge content: %w", err)
	}
	return res.RowsAffected()
}
