package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
	"github.com/tasklane/taskapi/internal/pkg/metrics"
)

const (
	msgEmailTaken         = "The email is already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgInactiveUser       = "The user is inactive or locked out"
	msgInvalidToken       = "Invalid or expired token"
	msgTooManyAttempts    = "Too many failed login attempts, try again later"
	msgRegisterFailed     = "Error registering user"
	msgLoginFailed        = "Error during login"
	msgRefreshFailed      = "Error refreshing token"
)

// AuthService implements registration, login and token refresh.
type AuthService struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenService
	limiter ports.LoginLimiter  // optional
	audit   ports.AuditRecorder // optional
	log     zerolog.Logger
	now     func() time.Time
}

// NewAuthService wires an AuthService. limiter and audit may be nil.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	limiter ports.LoginLimiter,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		audit:   audit,
		log:     log,
		now:     time.Now,
	}
}

// Register creates a regular, active user. The role cannot be chosen.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.PublicUser, error) {
	if err := requireFields(
		field{"firstName", in.FirstName}, field{"lastName", in.LastName}, field{"userName", in.UserName},
		field{"email", in.Email}, field{"password", in.Password},
	); err != nil {
		return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, err)
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, domain.Internal(msgRegisterFailed, err))
	}
	if existing != nil {
		return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, domain.Conflict(msgEmailTaken))
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, domain.Internal(msgRegisterFailed, err))
	}

	created, err := s.users.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, domain.Conflict(msgEmailTaken))
		}
		return nil, s.fail(ctx, domain.AuthEventRegister, in.Email, 0, domain.Internal(msgRegisterFailed, err))
	}

	s.succeed(ctx, domain.AuthEventRegister, created)
	pub := created.Public()
	return &pub, nil
}

// Login authenticates credentials and issues a token pair. Unknown email and
// wrong password produce the same caller-facing error.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if err := requireFields(field{"email", in.Email}, field{"password", in.Password}); err != nil {
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, 0, err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, in.Email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", in.Email).Msg("login throttle check failed, allowing attempt")
		} else if !allowed {
			metrics.LoginThrottledTotal.Inc()
			return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, 0,
				domain.TooManyRequests(msgTooManyAttempts).WithReason("throttled"))
		}
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, 0, domain.Internal(msgLoginFailed, err))
	}
	if user == nil {
		s.recordFailure(ctx, in.Email)
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, 0,
			domain.Unauthorized(msgInvalidCredentials).WithReason("email not found"))
	}
	if !user.IsActive {
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, user.ID,
			domain.Forbidden(msgInactiveUser).WithReason("inactive user"))
	}
	if !s.hasher.Verify(ctx, in.Password, user.PasswordHash) {
		s.recordFailure(ctx, in.Email)
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, user.ID,
			domain.Unauthorized(msgInvalidCredentials).WithReason("password mismatch"))
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventLogin, in.Email, user.ID, domain.Internal(msgLoginFailed, err))
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, in.Email); err != nil {
			s.log.Warn().Err(err).Str("email", in.Email).Msg("failed to reset login throttle")
		}
	}
	s.succeed(ctx, domain.AuthEventLogin, user)
	return result, nil
}

// Refresh exchanges a valid refresh token for a new pair built from the
// current state of the identity.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.LoginResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventRefresh, "", 0,
			domain.Unauthorized(msgInvalidToken).WithReason("refresh token rejected"))
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventRefresh, claims.Email, claims.UserID, domain.Internal(msgRefreshFailed, err))
	}
	if user == nil {
		return nil, s.fail(ctx, domain.AuthEventRefresh, claims.Email, claims.UserID,
			domain.Unauthorized(msgInvalidToken).WithReason("user no longer exists"))
	}
	if !user.IsActive {
		return nil, s.fail(ctx, domain.AuthEventRefresh, user.Email, user.ID,
			domain.Forbidden(msgInactiveUser).WithReason("inactive user"))
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, s.fail(ctx, domain.AuthEventRefresh, user.Email, user.ID, domain.Internal(msgRefreshFailed, err))
	}
	s.succeed(ctx, domain.AuthEventRefresh, user)
	return result, nil
}

func (s *AuthService) issuePair(user *domain.User) (*ports.LoginResult, error) {
	claims := user.Claims()
	access, err := s.tokens.IssueAccess(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(claims)
	if err != nil {
		return nil, err
	}
	return &ports.LoginResult{
		Tokens: domain.TokenPair{AccessToken: access, RefreshToken: refresh},
		User:   user.Public(),
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to record login failure")
	}
}

func (s *AuthService) succeed(ctx context.Context, op domain.AuthEventType, user *domain.User) {
	s.emit(ctx, op, domain.OutcomeSuccess, "", user.Email, user.ID)
	s.log.Info().
		Str("operation", string(op)).
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("auth succeeded")
}

// fail records the failure and returns err unchanged.
func (s *AuthService) fail(ctx context.Context, op domain.AuthEventType, email string, userID int64, err *domain.Error) error {
	reason := err.Reason()
	if reason == "" {
		reason = err.Message()
	}
	s.emit(ctx, op, domain.OutcomeFailure, reason, email, userID)

	ev := s.log.Warn()
	if errors.Is(err, domain.ErrInternal) {
		ev = s.log.Error().Err(err)
	}
	ev.Str("operation", string(op)).Str("email", email).Str("reason", reason).Msg("auth failed")
	return err
}

func (s *AuthService) emit(ctx context.Context, op domain.AuthEventType, outcome domain.AuthOutcome, reason, email string, userID int64) {
	metrics.AuthAttemptsTotal.WithLabelValues(string(op), string(outcome)).Inc()
	if s.audit == nil {
		return
	}
	meta := domain.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, domain.AuthEvent{
		Type:       op,
		Outcome:    outcome,
		Reason:     reason,
		Email:      email,
		UserID:     userID,
		IP:         meta.IP,
		RequestID:  meta.RequestID,
		OccurredAt: s.now().UTC(),
	})
}
