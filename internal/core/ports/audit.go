package ports

import (
	"context"

	"github.com/usuarios/registry/internal/core/domain"
)

// AuditRepository persists audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
}

// AuditPublisher hands audit events off for asynchronous persistence. Publish
// must not block the caller on I/O.
type AuditPublisher interface {
	Publish(event domain.AuditEvent)
}
