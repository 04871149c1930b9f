// Package auth implements the authentication core: OTP lifecycle,
// credential verification with account lockout, JWT issuance/rotation with
// a revocation blacklist, and the role/capability table.
package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors raised near their source and translated to the
// {detail, code} envelope once, at the handler boundary.
var (
	ErrRateLimitExceeded        = errors.New("rate limit exceeded")
	ErrInvalidOTP               = errors.New("invalid or expired otp")
	ErrInvalidRegistrationToken = errors.New("invalid or expired registration token")
	ErrAccountLocked            = errors.New("account locked")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrTokenInvalid             = errors.New("token invalid")
	ErrTokenExpired             = errors.New("token expired")
	ErrTokenRevoked             = errors.New("token revoked")
	ErrIdentifierExists         = errors.New("identifier already registered")
)

// ValidationError is a field-scoped 400. Reason is safe to show to clients.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
