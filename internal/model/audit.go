package model

import "time"

// Audit actions written by the auth endpoints. Entries are append-only;
// nothing in the request path updates or deletes them.
const (
	AuditLogin                = "LOGIN"
	AuditLogout               = "LOGOUT"
	AuditOTPSent              = "OTP_SENT"
	AuditOTPVerified          = "OTP_VERIFIED"
	AuditPasswordResetRequest = "PASSWORD_RESET_REQUEST"
	AuditPasswordResetDone    = "PASSWORD_RESET_COMPLETE"
	AuditRegisterEmail        = "REGISTER_EMAIL"
	AuditRegisterComplete     = "REGISTER_COMPLETE"
	AuditAccountLocked        = "ACCOUNT_LOCKED"
	AuditEmailVerified        = "EMAIL_VERIFIED"
)

// AuditLog mirrors the 'audit_logs' table. UserID is nil for anonymous
// events such as OTP requests before an account exists.
type AuditLog struct {
	ID        uint64
	UserID    *uint64
	Action    string
	IP        string
	UserAgent string
	Metadata  string // JSON blob, may be empty
	CreatedAt time.Time
}
