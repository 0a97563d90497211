package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// TaskRepository defines persistence operations for tasks.
// Missing rows follow the same (nil, nil) / (false, nil) contract as UserRepository.
type TaskRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	// List returns all tasks ordered by id ascending.
	List(ctx context.Context) ([]*domain.Task, error)
	// ListByOwner returns the tasks of userID, newest first.
	ListByOwner(ctx context.Context, userID int64) ([]*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
