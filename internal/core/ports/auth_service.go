package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Password  string
}

// LoginInput carries the credentials of a login attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	Tokens domain.TokenPair  `json:"tokens"`
	User   domain.PublicUser `json:"user"`
}

// AuthService implements registration, login and token refresh.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
}
