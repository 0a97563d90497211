package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tasklane/taskapi/internal/core/domain"
)

// RequestMeta copies the client IP and the request id into the request
// context so that use cases can stamp them on audit events. It must run
// after echo's RequestID middleware.
func RequestMeta() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			meta := domain.RequestMeta{
				IP:        c.RealIP(),
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
			}
			c.SetRequest(req.WithContext(domain.ContextWithRequestMeta(req.Context(), meta)))
			return next(c)
		}
	}
}
