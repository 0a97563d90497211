package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// CreateTaskInput carries a new task. Nil status and priority take the defaults.
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
}

// UpdateTaskInput only changes the non-nil fields.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	IsActive    *bool
}

// TaskService defines use-case operations on tasks.
type TaskService interface {
	List(ctx context.Context, caller domain.Claims) ([]*domain.Task, error)
	Get(ctx context.Context, caller domain.Claims, id int64) (*domain.Task, error)
	Create(ctx context.Context, caller domain.Claims, in CreateTaskInput) (*domain.Task, error)
	Update(ctx context.Context, caller domain.Claims, id int64, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, caller domain.Claims, id int64) error
}
