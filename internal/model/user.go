package model

import "time"

// User roles, most to least privileged. GUEST_USER never has a row in the
// users table; it only appears as the effective role of unauthenticated
// requests.
const (
	RoleSuperAdmin     = "SUPER_ADMIN"
	RolePharmacyAdmin  = "PHARMACY_ADMIN"
	RoleDoctor         = "DOCTOR"
	RoleRegisteredUser = "REGISTERED_USER"
	RoleGuestUser      = "GUEST_USER"
)

// Account statuses.
const (
	StatusActive              = "ACTIVE"
	StatusInactive            = "INACTIVE"
	StatusLocked              = "LOCKED"
	StatusPendingVerification = "PENDING_VERIFICATION"
)

// User mirrors the 'users' table.
//
// Phone always holds the normalized digits-only identifier. For accounts
// registered by email the column holds a synthesized "email_..." placeholder
// instead, so at most one of Phone/Email is synthetic and the unique index
// stays usable for both flows.
type User struct {
	ID                  uint64
	Phone               string
	Email               string // empty when NULL
	PasswordHash        string
	Role                string
	Status              string
	IsVerified          bool
	FirstName           string
	LastName            string
	FailedLoginAttempts int
	LastFailedLoginAt   *time.Time
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// FullName returns first+last name, falling back to the phone identifier.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Phone
	}
	return name
}
