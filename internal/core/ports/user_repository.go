package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// UserRepository defines persistence operations for identities.
//
// Lookups and updates of a missing row return (nil, nil); Delete returns
// (false, nil). A duplicate email is reported as domain.ErrConflict.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// List returns every identity ordered by id.
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update replaces the mutable columns of the row identified by user.ID.
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}
