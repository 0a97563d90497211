package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/policy"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/pkg/metrics"
)

const (
	msgUserNotFound     = "User not found"
	msgViewUserDenied   = "You do not have permission to view this user"
	msgModifyUserDenied = "You do not have permission to modify this user"
	msgDeleteUserDenied = "You do not have permission to delete this user"
	msgOnlyAdminsCreate = "Only administrators can create users"
	msgOnlyAdminsManage = "Only administrators can change the role or status of a user"
	msgInvalidRole      = "must be one of: user, admin"
	msgListUsersFailed  = "Error listing users"
	msgGetUserFailed    = "Error fetching user"
	msgCreateUserFailed = "Error creating user"
	msgUpdateUserFailed = "Error updating user"
	msgPatchUserFailed  = "Error partially updating user"
	msgDeleteUserFailed = "Error deleting user"
	seedAdminFirstName  = "Admin"
	seedAdminLastName   = "User"
	seedAdminUserName   = "admin"
)

type userService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

// NewUserService returns a UserService implementation.
func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) ports.UserService {
	return &userService{users: users, hasher: hasher, log: log, now: time.Now}
}

func (s *userService) List(ctx context.Context, caller domain.Claims) ([]*domain.User, error) {
	if caller.IsAdmin() {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, domain.Internal(msgListUsersFailed, err)
		}
		return users, nil
	}

	self, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, domain.Internal(msgListUsersFailed, err)
	}
	if self == nil {
		return nil, domain.NotFound(msgUserNotFound)
	}
	return []*domain.User{self}, nil
}

func (s *userService) Get(ctx context.Context, caller domain.Claims, id int64) (*domain.User, error) {
	if !policy.CanAccess(caller.Role, caller.UserID, id) {
		return nil, s.deny(caller, id, msgViewUserDenied)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(msgGetUserFailed, err)
	}
	if user == nil {
		return nil, domain.NotFound(msgUserNotFound)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, caller domain.Claims, in ports.CreateUserInput) (*domain.User, error) {
	if !caller.IsAdmin() {
		return nil, s.deny(caller, 0, msgOnlyAdminsCreate)
	}
	if err := requireFields(
		field{"firstName", in.FirstName}, field{"lastName", in.LastName}, field{"userName", in.UserName},
		field{"email", in.Email}, field{"password", in.Password},
	); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.Validation(domain.FieldError{Path: "userRole", Message: msgInvalidRole})
	}
	if err := s.ensureEmailFree(ctx, in.Email, 0, msgCreateUserFailed); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, domain.Internal(msgCreateUserFailed, err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, domain.AsError(err, msgCreateUserFailed)
	}

	s.log.Info().Int64("user_id", created.ID).Int64("by", caller.UserID).Str("role", string(role)).Msg("user created")
	return created, nil
}

func (s *userService) Update(ctx context.Context, caller domain.Claims, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	if !policy.CanAccess(caller.Role, caller.UserID, id) {
		return nil, s.deny(caller, id, msgModifyUserDenied)
	}
	if err := requireFields(
		field{"firstName", in.FirstName}, field{"lastName", in.LastName}, field{"userName", in.UserName},
		field{"email", in.Email}, field{"password", in.Password},
	); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id, msgUpdateUserFailed)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrivileged(caller, user, in.Role, in.IsActive); err != nil {
		return nil, err
	}
	if in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, in.Email, user.ID, msgUpdateUserFailed); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, domain.Internal(msgUpdateUserFailed, err)
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.UserName = in.UserName
	user.Email = in.Email
	user.PasswordHash = hash
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	return s.save(ctx, user, msgUpdateUserFailed)
}

func (s *userService) Patch(ctx context.Context, caller domain.Claims, id int64, in ports.PatchUserInput) (*domain.User, error) {
	if !policy.CanAccess(caller.Role, caller.UserID, id) {
		return nil, s.deny(caller, id, msgModifyUserDenied)
	}

	user, err := s.load(ctx, id, msgPatchUserFailed)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrivileged(caller, user, in.Role, in.IsActive); err != nil {
		return nil, err
	}
	if in.Email != nil && *in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *in.Email, user.ID, msgPatchUserFailed); err != nil {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return nil, domain.Internal(msgPatchUserFailed, err)
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.UserName != nil {
		user.UserName = *in.UserName
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	return s.save(ctx, user, msgPatchUserFailed)
}

func (s *userService) Delete(ctx context.Context, caller domain.Claims, id int64) error {
	if !policy.CanAccess(caller.Role, caller.UserID, id) {
		return s.deny(caller, id, msgDeleteUserDenied)
	}
	if _, err := s.load(ctx, id, msgDeleteUserFailed); err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return domain.Internal(msgDeleteUserFailed, err)
	}
	if !deleted {
		return domain.Internal(msgDeleteUserFailed, fmt.Errorf("delete user %d: no rows affected", id))
	}
	s.log.Info().Int64("user_id", id).Int64("by", caller.UserID).Msg("user deleted")
	return nil
}

// EnsureAdmin creates the seed administrator when the store holds no admin.
// It reports whether a user was created.
func (s *userService) EnsureAdmin(ctx context.Context, seed ports.AdminSeed) (bool, error) {
	if seed.Email == "" || seed.Password == "" {
		return false, errors.New("seed admin: email and password are required")
	}

	count, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("seed admin: count admins: %w", err)
	}
	if count > 0 {
		s.log.Debug().Int64("admins", count).Msg("admin already present, seed skipped")
		return false, nil
	}

	existing, err := s.users.FindByEmail(ctx, seed.Email)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if existing != nil {
		return false, fmt.Errorf("seed admin: email %s is already used by a non-admin user", seed.Email)
	}

	hash, err := s.hasher.Hash(ctx, seed.Password)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	created, err := s.users.Create(ctx, &domain.User{
		FirstName:    seedAdminFirstName,
		LastName:     seedAdminLastName,
		UserName:     seedAdminUserName,
		Email:        seed.Email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("email", created.Email).Msg("administrator user created")
	return true, nil
}

func (s *userService) load(ctx context.Context, id int64, failMsg string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(failMsg, err)
	}
	if user == nil {
		return nil, domain.NotFound(msgUserNotFound)
	}
	return user, nil
}

func (s *userService) save(ctx context.Context, user *domain.User, failMsg string) (*domain.User, error) {
	now := s.now().UTC()
	user.UpdatedAt = &now

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, domain.AsError(err, failMsg)
	}
	if updated == nil {
		return nil, domain.Internal(failMsg, fmt.Errorf("update user %d: no rows affected", user.ID))
	}
	return updated, nil
}

// checkPrivileged rejects role or status changes requested by non-admins.
// Sending the current value is not a change.
func (s *userService) checkPrivileged(caller domain.Claims, user *domain.User, role *domain.Role, active *bool) error {
	if role != nil && !role.Valid() {
		return domain.Validation(domain.FieldError{Path: "userRole", Message: msgInvalidRole})
	}
	if caller.IsAdmin() {
		return nil
	}
	if (role != nil && *role != user.Role) || (active != nil && *active != user.IsActive) {
		return s.deny(caller, user.ID, msgOnlyAdminsManage)
	}
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, selfID int64, failMsg string) error {
	other, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.Internal(failMsg, err)
	}
	if other != nil && other.ID != selfID {
		return domain.Conflict(msgEmailTaken)
	}
	return nil
}

func (s *userService) deny(caller domain.Claims, target int64, msg string) error {
	metrics.AuthzDeniedTotal.WithLabelValues("user").Inc()
	s.log.Warn().Int64("caller_id", caller.UserID).Str("role", string(caller.Role)).Int64("target_id", target).Msg("user access denied")
	return domain.Forbidden(msg)
}
