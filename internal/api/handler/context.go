package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tasklane/taskapi/internal/api/middleware"
	"github.com/tasklane/taskapi/internal/core/domain"
)

// listResponse is the read envelope.
type listResponse struct {
	Count int `json:"count"`
	Data  any `json:"data"`
}

// messageResponse is the mutation envelope.
type messageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// callerFrom returns the claims stored by the Auth middleware. Handlers behind
// Auth never see a request without them, so absence is reported as 401.
func callerFrom(c echo.Context) (domain.Claims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return domain.Claims{}, domain.Unauthorized("Not authenticated")
	}
	return *claims, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation(domain.FieldError{Path: "id", Message: "Must be a positive integer"})
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs its rules.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}
