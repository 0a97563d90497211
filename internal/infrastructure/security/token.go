package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tasklane/taskapi/internal/core/domain"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// tokenClaims is the wire form of a signed token.
type tokenClaims struct {
	UserID int64       `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Type   string      `json:"typ"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenService signs HS256 tokens with separate access and refresh secrets.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

func (s *TokenService) IssueAccess(claims domain.Claims) (string, error) {
	return s.issue(claims, typeAccess, s.accessKey, s.accessTTL)
}

func (s *TokenService) IssueRefresh(claims domain.Claims) (string, error) {
	return s.issue(claims, typeRefresh, s.refreshKey, s.refreshTTL)
}

func (s *TokenService) VerifyAccess(token string) (*domain.Claims, error) {
	return s.verify(token, typeAccess, s.accessKey)
}

func (s *TokenService) VerifyRefresh(token string) (*domain.Claims, error) {
	return s.verify(token, typeRefresh, s.refreshKey)
}

func (s *TokenService) issue(claims domain.Claims, typ string, key []byte, ttl time.Duration) (string, error) {
	now := s.now()
	tc := tokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *TokenService) verify(token, typ string, key []byte) (*domain.Claims, error) {
	tc := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	if tc.Type != typ {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{UserID: tc.UserID, Email: tc.Email, Role: tc.Role}, nil
}
