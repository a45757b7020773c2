package domain

import (
	"context"
	"time"
)

type AuditEntry struct {
	ID             string
	OrganizationID string
	ActorID        string
	Action         string
	ResourceType   string
	ResourceID     string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type AuditStore interface {
	CreateAuditEntries(ctx context.Context, entries []AuditEntry) error
	ListAuditEntries(ctx context.Context, organizationID string, limit, offset int) ([]AuditEntry, error)
}

// AuditRecorder accepts entries without blocking the request path.
// Entries are flushed asynchronously and drained on shutdown.
type AuditRecorder interface {
	Record(entry AuditEntry)
}

type AuditManager interface {
	// ListEntries returns the organization's audit trail, newest first.
	ListEntries(ctx context.Context, organizationID string, limit, offset int) ([]AuditEntry, error)
}
