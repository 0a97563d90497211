package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// CreateUserInput carries the fields of an administrator-created identity.
// An empty Role defaults to domain.RoleUser.
type CreateUserInput struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Password  string
	Role      domain.Role
}

// UpdateUserInput is a full replacement of the profile and password.
// Role and IsActive are optional; when nil the stored value is kept.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Password  string
	Role      *domain.Role
	IsActive  *bool
}

// PatchUserInput only changes the non-nil fields.
type PatchUserInput struct {
	FirstName *string
	LastName  *string
	UserName  *string
	Email     *string
	Password  *string
	Role      *domain.Role
	IsActive  *bool
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Email    string
	Password string
}

// UserService defines use-case operations on identities. Every operation
// receives the authenticated caller.
type UserService interface {
	List(ctx context.Context, caller domain.Claims) ([]*domain.User, error)
	Get(ctx context.Context, caller domain.Claims, id int64) (*domain.User, error)
	Create(ctx context.Context, caller domain.Claims, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, caller domain.Claims, id int64, in UpdateUserInput) (*domain.User, error)
	Patch(ctx context.Context, caller domain.Claims, id int64, in PatchUserInput) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Claims, id int64) error
	// EnsureAdmin creates the seed administrator when no admin exists yet.
	EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error)
}
