// Package policy holds every role and ownership decision of the service.
package policy

import "github.com/tasklane/taskapi/internal/core/domain"

const (
	msgNotAuthenticated = "Not authenticated"
	msgRouteForbidden   = "You do not have permission to access this route"
)

// CanAccess reports whether a caller may act on a resource owned by ownerID.
// Administrators may act on anything; everyone else only on their own.
func CanAccess(role domain.Role, callerID, ownerID int64) bool {
	if role == domain.RoleAdmin {
		return true
	}
	return callerID == ownerID
}

// RequireRole fails with Unauthorized when there is no caller and with
// Forbidden when the caller's role is not in allowed.
func RequireRole(caller *domain.Claims, allowed ...domain.Role) error {
	if caller == nil {
		return domain.Unauthorized(msgNotAuthenticated)
	}
	for _, r := range allowed {
		if caller.Role == r {
			return nil
		}
	}
	return domain.Forbidden(msgRouteForbidden)
}
