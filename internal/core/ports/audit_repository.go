package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// AuditRepository persists the auth audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditRecorder accepts auth events for asynchronous persistence.
// Record must never block the caller.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuthEvent)
}

// AuditService persists one auth event. It is called by the audit workers.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}
