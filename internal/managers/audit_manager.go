package managers

import (
	"context"
	"fmt"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

type auditManager struct {
	entries domain.AuditStore
}

type AuditManagerDependencies struct {
	AuditStore domain.AuditStore
}

func NewAuditManager(deps AuditManagerDependencies) domain.AuditManager {
	return &auditManager{entries: deps.AuditStore}
}

func (m *auditManager) ListEntries(ctx context.Context, organizationID string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := m.entries.ListAuditEntries(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}
