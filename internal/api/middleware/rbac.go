package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/policy"
	"github.com/tasklane/taskapi/internal/pkg/metrics"
)

// RBAC admits only callers holding one of the allowed roles. It must run
// after Auth.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := ClaimsFrom(c)
			if err := policy.RequireRole(claims, allowed...); err != nil {
				metrics.AuthzDeniedTotal.WithLabelValues("route").Inc()
				return err
			}
			return next(c)
		}
	}
}
