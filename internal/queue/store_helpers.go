package queue

import (
	"database/sql"
	"errors"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sessionColumns = "id, total_files, processed_files, failed_files, skipped_files, status, credential, tag, started_at, completed_at, last_update"

const itemColumns = "id, session_id, file_name, file_path, file_content, file_size, dedup_key, status, error_message, workflow_id, created_at, claimed_at, processed_at"

// itemSummaryColumns omits file_content for listings.
const itemSummaryColumns = "id, session_id, file_name, file_path, NULL, file_size, dedup_key, status, error_message, workflow_id, created_at, claimed_at, processed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(scanner rowScanner) (*Session, error) {
	var (
		session      Session
		status       string
		credential   sql.NullString
		startedRaw   string
		completedRaw sql.NullString
		updatedRaw   string
	)
	if err := scanner.Scan(
		&session.ID,
		&session.TotalFiles,
		&session.ProcessedFiles,
		&session.FailedFiles,
		&session.SkippedFiles,
		&status,
		&credential,
		&session.Tag,
		&startedRaw,
		&completedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	session.Status = SessionStatus(status)
	session.Credential = credential.String
	session.StartedAt, _ = parseTimeString(startedRaw)
	session.LastUpdate, _ = parseTimeString(updatedRaw)
	session.CompletedAt = parseNullableTime(completedRaw)
	return &session, nil
}

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item         Item
		status       string
		content      []byte
		dedupKey     sql.NullString
		errorMessage sql.NullString
		workflowID   sql.NullString
		createdRaw   string
		claimedRaw   sql.NullString
		processedRaw sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.SessionID,
		&item.FileName,
		&item.FilePath,
		&content,
		&item.FileSize,
		&dedupKey,
		&status,
		&errorMessage,
		&workflowID,
		&createdRaw,
		&claimedRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.FileContent = content
	item.DedupKey = dedupKey.String
	item.ErrorMessage = errorMessage.String
	item.WorkflowID = workflowID.String
	item.CreatedAt, _ = parseTimeString(createdRaw)
	item.ClaimedAt = parseNullableTime(claimedRaw)
	item.ProcessedAt = parseNullableTime(processedRaw)
	return &item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
