package queue

import "time"

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the status is final for an item.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus converts a user-supplied string into an item Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// SessionStatus represents the lifecycle of an import session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is one bulk import run.
type Session struct {
	ID             string
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	SkippedFiles   int
	Status         SessionStatus
	// Credential is handed to the analyzer untouched. It must never be logged.
	Credential  string
	Tag         string
	StartedAt   time.Time
	CompletedAt *time.Time
	LastUpdate  time.Time
}

// IsActive reports whether the session still accepts processing.
func (s *Session) IsActive() bool {
	return s != nil && s.Status == SessionActive
}

// Done returns processed plus failed.
func (s *Session) Done() int {
	if s == nil {
		return 0
	}
	return s.ProcessedFiles + s.FailedFiles
}

// Item is one file's unit of work within a session.
type Item struct {
	ID           int64
	SessionID    string
	FileName     string
	FilePath     string
	FileContent  []byte
	FileSize     int64
	DedupKey     string
	Status       Status
	ErrorMessage string
	WorkflowID   string
	CreatedAt    time.Time
	ClaimedAt    *time.Time
	ProcessedAt  *time.Time
}

// NewSession describes a session to create.
type NewSession struct {
	TotalFiles   int
	SkippedFiles int
	Credential   string
	Tag          string
}

// NewItem describes a file to enqueue.
type NewItem struct {
	FileName string
	FilePath string
	Content  []byte
	Size     int64
	DedupKey string
}

// SessionUpdate is a partial session mutation. Nil fields are left unchanged.
type SessionUpdate struct {
	Processed *int
	Failed    *int
	Skipped   *int
	Status    *SessionStatus
}

// MarkOptions carries the outcome fields recorded by Mark.
type MarkOptions struct {
	WorkflowID   string
	ErrorMessage string
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	TotalSessions    int
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated item counts across all sessions.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
