package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

const claimsKey = "claims"

// Auth verifies the bearer access token and stores its claims both on the
// echo context and on the request context.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.Unauthorized("Token not provided")
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				return domain.Unauthorized("Invalid or expired token").WithReason(err.Error())
			}

			c.Set(claimsKey, claims)
			req := c.Request()
			c.SetRequest(req.WithContext(domain.ContextWithClaims(req.Context(), *claims)))

			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by Auth.
func ClaimsFrom(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*domain.Claims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
