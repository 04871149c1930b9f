// Package middleware provides the request-level guards: bearer-token
// authentication, capability checks, and Redis-backed throttling.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mypharma/pharma-backend/internal/auth"
)

// Context keys set by Auth for downstream handlers and middleware.
const (
	CtxUserID      = "user_id"
	CtxRole        = "role"
	CtxAccessToken = "access_token"
)

func errJSON(c echo.Context, status int, code, detail string) error {
	return c.JSON(status, echo.Map{"detail": detail, "code": code})
}

// Auth validates the Bearer access token, including the revocation
// blacklist, and stores the caller's id, role and raw token in the echo
// context.
func Auth(tm *auth.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return errJSON(c, http.StatusUnauthorized, "not_authenticated", "authentication credentials were not provided")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tm.Validate(c.Request().Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					return errJSON(c, http.StatusUnauthorized, "token_expired", "access token has expired")
				case errors.Is(err, auth.ErrTokenRevoked):
					return errJSON(c, http.StatusUnauthorized, "token_revoked", "access token has been revoked")
				default:
					return errJSON(c, http.StatusUnauthorized, "token_invalid", "access token is invalid")
				}
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxAccessToken, raw)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context, or 0 when
// the route is not wrapped by Auth.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}

// Role returns the authenticated user's role, or the guest role for
// unauthenticated requests.
func Role(c echo.Context) string {
	if v, ok := c.Get(CtxRole).(string); ok && v != "" {
		return v
	}
	return ""
}
