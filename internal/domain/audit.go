package domain

import "time"

// AuditEntry records a security-relevant event. Writes are best-effort.
type AuditEntry struct {
	ID        int64
	Action    string
	Resource  string
	Details   string
	UserID    *int64
	IPAddress string
	CreatedAt time.Time
}
