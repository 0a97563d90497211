package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tasklane/taskapi/internal/core/domain"
)

type stubTokens struct {
	claims *domain.Claims
	err    error
}

func (s stubTokens) IssueAccess(domain.Claims) (string, error)  { return "", nil }
func (s stubTokens) IssueRefresh(domain.Claims) (string, error) { return "", nil }

func (s stubTokens) VerifyAccess(token string) (*domain.Claims, error) {
	if token != "good" {
		return nil, domain.ErrInvalidToken
	}
	return s.claims, s.err
}

func (s stubTokens) VerifyRefresh(string) (*domain.Claims, error) { return nil, domain.ErrInvalidToken }

func runAuth(t *testing.T, header string, next echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	tokens := stubTokens{claims: &domain.Claims{UserID: 7, Email: "a@x.com", Role: domain.RoleUser}}
	return Auth(tokens)(next)(c)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	called := false
	err := runAuth(t, "Bearer good", func(c echo.Context) error {
		called = true
		claims, ok := ClaimsFrom(c)
		if !ok || claims.UserID != 7 {
			t.Fatalf("claims not set on echo context")
		}
		fromCtx, ok := domain.ClaimsFromContext(c.Request().Context())
		if !ok || fromCtx.Email != "a@x.com" {
			t.Fatalf("claims not set on request context")
		}
		return c.NoContent(http.StatusOK)
	})

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := map[string]struct {
		header  string
		message string
	}{
		"missing header":      {"", "Token not provided"},
		"wrong scheme":        {"Token good", "Token not provided"},
		"empty bearer":        {"Bearer ", "Token not provided"},
		"verification failed": {"Bearer bad", "Invalid or expired token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := runAuth(t, tc.header, func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			var de *domain.Error
			if !errors.As(err, &de) || !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if de.Message() != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, de.Message())
			}
		})
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	err := runAuth(t, "bearer good", func(c echo.Context) error { return nil })
	if err != nil {
		t.Fatalf("expected lowercase scheme to be accepted, got %v", err)
	}
}
