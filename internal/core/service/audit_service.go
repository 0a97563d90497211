package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/pkg/ids"
	"github.com/tasklane/taskapi/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewAuditService returns an AuditService that writes to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log, now: time.Now}
}

// Process stamps event with an id and time when missing and persists it.
func (s *auditService) Process(ctx context.Context, event domain.AuthEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if event.ID == "" {
		event.ID = ids.NewAt(event.OccurredAt)
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditWriteErrorsTotal.Inc()
		return fmt.Errorf("process audit event: %w", err)
	}

	s.log.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("outcome", string(event.Outcome)).
		Str("email", event.Email).
		Msg("audit event stored")
	return nil
}
