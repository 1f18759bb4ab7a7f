package domain

import "time"

// AuditAction names the mutation an AuditEvent records.
type AuditAction string

const (
	AuditCreated AuditAction = "created"
	AuditUpdated AuditAction = "updated"
	AuditDeleted AuditAction = "deleted"
)

// AuditEvent is a write-only trace of a committed mutation. The registry is
// never rebuilt from it.
type AuditEvent struct {
	ID        string
	Action    AuditAction
	UserID    int
	User      *UserRecord // nil for deletions
	At        time.Time
	RequestID string
}
