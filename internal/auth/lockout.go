package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/queue"
	"github.com/mypharma/pharma-backend/internal/store"
	"github.com/mypharma/pharma-backend/internal/utils"
)

// CredentialConfig carries the lockout tunables. Threshold and duration are
// configuration, never constants in the flow.
type CredentialConfig struct {
	LockoutThreshold  int           // failed attempts before locking, default 5
	LockoutDuration   time.Duration // default 30m
	ResetTokenTTL     time.Duration // password-reset link lifetime, default 1h
	PasswordMinLength int
	BcryptCost        int
	FrontendURL       string
}

// CredentialManager verifies password logins and runs the failed-attempt /
// timed-lockout state machine. The persistent lock fields on the user row
// are the source of truth; the cache flag is a fast path that expires on
// its own.
type CredentialManager struct {
	users UserStore
	cache store.Ephemeral
	pub   DeliveryPublisher
	audit AuditSink
	cfg   CredentialConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewCredentialManager(users UserStore, cache store.Ephemeral, pub DeliveryPublisher, audit AuditSink, cfg CredentialConfig, log *zap.Logger) *CredentialManager {
	return &CredentialManager{users: users, cache: cache, pub: pub, audit: audit, cfg: cfg, log: log, now: time.Now}
}

func lockoutKey(phone string) string    { return "lockout:" + phone }
func resetTokenKey(token string) string { return "pwreset:" + token }

// unlockedStatus is the status an account returns to when its lock clears.
// Unverified accounts go back to awaiting verification, not ACTIVE.
func unlockedStatus(u *model.User) string {
	if !u.IsVerified {
		return model.StatusPendingVerification
	}
	return model.StatusActive
}

// CheckLockout fails with ErrAccountLocked while either the persistent
// lock-expiry lies in the future or the cache flag is still set. A lock
// whose expiry has passed is cleared lazily here, counter included, so no
// background job is needed.
func (m *CredentialManager) CheckLockout(ctx context.Context, u *model.User) error {
	now := m.now()
	if u.LockedUntil != nil {
		if u.LockedUntil.After(now) {
			return ErrAccountLocked
		}
		restored := unlockedStatus(u)
		if err := m.users.UpdateLockout(ctx, u.ID, 0, nil, nil, restored); err != nil {
			return err
		}
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.Status = restored
	}
	flagged, err := m.cache.Exists(ctx, lockoutKey(u.Phone))
	if err != nil {
		return err
	}
	if flagged {
		return ErrAccountLocked
	}
	return nil
}

// RecordFailedLogin bumps the counter and, at the threshold, starts the
// timed lock and mirrors it into the cache. Lockout is monotonic: a failure
// against an already locked account never extends the lock.
func (m *CredentialManager) RecordFailedLogin(ctx context.Context, u *model.User) error {
	now := m.now()
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		return nil
	}
	attempts := u.FailedLoginAttempts + 1
	if attempts >= m.cfg.LockoutThreshold {
		until := now.Add(m.cfg.LockoutDuration)
		if err := m.users.UpdateLockout(ctx, u.ID, attempts, &now, &until, model.StatusLocked); err != nil {
			return err
		}
		u.FailedLoginAttempts = attempts
		u.LockedUntil = &until
		u.Status = model.StatusLocked
		if err := m.cache.Set(ctx, lockoutKey(u.Phone), "1", m.cfg.LockoutDuration); err != nil {
			m.log.Warn("lockout: cache mirror failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		}
		if m.audit != nil {
			uid := u.ID
			if err := m.audit.Record(ctx, model.AuditLog{
				UserID:   &uid,
				Action:   model.AuditAccountLocked,
				Metadata: fmt.Sprintf(`{"attempts":%d}`, attempts),
			}); err != nil {
				m.log.Warn("lockout: audit write failed", zap.Error(err))
			}
		}
		return nil
	}
	if err := m.users.UpdateLockout(ctx, u.ID, attempts, &now, nil, u.Status); err != nil {
		return err
	}
	u.FailedLoginAttempts = attempts
	u.LastFailedLoginAt = &now
	return nil
}

// Login authenticates a password credential against the normalized
// identifier. User absence, inactive accounts and bad passwords all come
// back as ErrInvalidCredentials so the endpoint leaks nothing; lockout is
// the one state reported distinctly (the account owner already knows the
// identifier is real).
func (m *CredentialManager) Login(ctx context.Context, id Identifier, password string) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	switch id.Kind {
	case KindPhone:
		u, err = m.users.GetByPhone(ctx, id.Value)
	case KindEmail:
		u, err = m.users.GetByEmail(ctx, id.Value)
	default:
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, ErrInvalidCredentials
	}

	if err := m.CheckLockout(ctx, u); err != nil {
		return nil, err
	}
	if u.Status == model.StatusInactive {
		return nil, ErrInvalidCredentials
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		if err := m.RecordFailedLogin(ctx, u); err != nil {
			m.log.Warn("login: failed-attempt update failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	if u.FailedLoginAttempts > 0 || u.LockedUntil != nil {
		if err := m.users.UpdateLockout(ctx, u.ID, 0, nil, nil, u.Status); err != nil {
			return nil, err
		}
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	if err := m.cache.Del(ctx, lockoutKey(u.Phone)); err != nil {
		m.log.Warn("login: lockout flag cleanup failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

// RequestPasswordReset mints a reset token and queues the email when the
// address belongs to a live account. It reports nothing either way; the
// endpoint answers 200 regardless to avoid identity enumeration.
func (m *CredentialManager) RequestPasswordReset(ctx context.Context, email string) error {
	e := NormalizeEmail(email)
	u, err := m.users.GetByEmail(ctx, e)
	if err != nil {
		return err
	}
	if u == nil || u.DeletedAt != nil {
		return nil
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return err
	}
	if err := m.cache.Set(ctx, resetTokenKey(token), strconv.FormatUint(u.ID, 10), m.cfg.ResetTokenTTL); err != nil {
		return err
	}
	ev := queue.DeliveryEvent{
		Channel:     queue.ChannelEmail,
		Recipient:   e,
		Subject:     "Password reset",
		Body:        fmt.Sprintf("Reset your password: %s/reset-password?token=%s (expires in %s)", m.cfg.FrontendURL, token, m.cfg.ResetTokenTTL),
		Purpose:     PurposePasswordReset,
		RequestedAt: m.now().UTC().Format(time.RFC3339),
	}
	if err := m.pub.Publish(ctx, ev); err != nil {
		m.log.Warn("password-reset: mail publish failed", zap.Error(err))
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and installs the new
// password. The token is deleted before the update, so it is single use. A
// successful reset also clears any lockout state: the owner has just proven
// control of the mailbox.
func (m *CredentialManager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*model.User, error) {
	v, err := m.cache.Get(ctx, resetTokenKey(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidRegistrationToken
	}
	if err != nil {
		return nil, err
	}
	if err := m.cache.Del(ctx, resetTokenKey(token)); err != nil {
		return nil, err
	}
	uid, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, ErrInvalidRegistrationToken
	}

	u, err := m.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, ErrInvalidRegistrationToken
	}

	if err := CheckPasswordStrength(newPassword, m.cfg.PasswordMinLength); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(newPassword, m.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := m.users.UpdatePassword(ctx, uid, hash); err != nil {
		return nil, err
	}

	if u.FailedLoginAttempts > 0 || u.LockedUntil != nil || u.Status == model.StatusLocked {
		if err := m.users.UpdateLockout(ctx, uid, 0, nil, nil, unlockedStatus(u)); err != nil {
			return nil, err
		}
	}
	if err := m.cache.Del(ctx, lockoutKey(u.Phone)); err != nil {
		m.log.Warn("password-reset: lockout flag cleanup failed", zap.Uint64("user_id", uid), zap.Error(err))
	}
	u.PasswordHash = hash
	return u, nil
}
