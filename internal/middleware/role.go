package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mypharma/pharma-backend/internal/auth"
)

// RequireCapability aborts with 403 unless the authenticated caller's role
// grants the capability. It must run after Auth, which stores the role in
// the context.
func RequireCapability(cap auth.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.Allowed(Role(c), cap) {
				return errJSON(c, http.StatusForbidden, "permission_denied", "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
