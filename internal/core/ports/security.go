package ports

import (
	"context"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify fails closed: any error is reported as a mismatch.
	Verify(ctx context.Context, plaintext, digest string) bool
}

// TokenService issues and verifies signed access and refresh tokens.
type TokenService interface {
	IssueAccess(claims domain.Claims) (string, error)
	IssueRefresh(claims domain.Claims) (string, error)
	VerifyAccess(token string) (*domain.Claims, error)
	VerifyRefresh(token string) (*domain.Claims, error)
}

// LoginLimiter throttles repeated login failures per email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}
