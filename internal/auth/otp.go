package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/queue"
	"github.com/mypharma/pharma-backend/internal/repository"
	"github.com/mypharma/pharma-backend/internal/store"
	"github.com/mypharma/pharma-backend/internal/utils"
)

// OTP purposes; part of the cache key so codes for different flows never
// collide.
const (
	PurposeRegistration      = "REGISTRATION"
	PurposePasswordReset     = "PASSWORD_RESET"
	PurposeEmailVerification = "EMAIL_VERIFICATION"
)

// OTPConfig carries the tunables of the OTP and registration flow. Values
// come from the environment; nothing here is hardcoded at call sites.
type OTPConfig struct {
	Length            int           // numeric code length, default 6
	TTL               time.Duration // code lifetime, default 5m
	MaxResendPerHour  int           // resend budget per identifier, default 3
	RegTokenTTL       time.Duration // registration token lifetime, default 10m
	EmailTokenTTL     time.Duration // email verification token lifetime, default 24h
	PasswordMinLength int
	BcryptCost        int
	FrontendURL       string // base for links embedded in emails
}

// OTPManager owns code issuance, verification, and the registration flows
// that hang off a verified identifier.
type OTPManager struct {
	cache store.Ephemeral
	users UserStore
	pub   DeliveryPublisher
	cfg   OTPConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewOTPManager(cache store.Ephemeral, users UserStore, pub DeliveryPublisher, cfg OTPConfig, log *zap.Logger) *OTPManager {
	return &OTPManager{cache: cache, users: users, pub: pub, cfg: cfg, log: log, now: time.Now}
}

// RegTokenTTL reports the registration-token lifetime; the HTTP layer
// echoes it as expires_in.
func (m *OTPManager) RegTokenTTL() time.Duration { return m.cfg.RegTokenTTL }

func otpKey(id Identifier, purpose string) string { return fmt.Sprintf("otp:%s:%s", id.Value, purpose) }
func resendKey(id Identifier) string              { return "otp_resend:" + id.Value }
func regTokenKey(token string) string             { return "regtoken:" + token }
func emailVerifyKey(token string) string          { return "emailverify:" + token }

// RequestOTP issues a one-time code for the identifier and dispatches
// delivery through the broker. The resend counter is checked before the
// new code is written, so a saturated budget leaves any still-valid code
// untouched. Delivery problems are logged, never returned: the HTTP
// request must not block on or fail with the SMS provider.
func (m *OTPManager) RequestOTP(ctx context.Context, id Identifier) error {
	cnt := 0
	if v, err := m.cache.Get(ctx, resendKey(id)); err == nil {
		cnt, _ = strconv.Atoi(v)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if cnt >= m.cfg.MaxResendPerHour {
		return ErrRateLimitExceeded
	}

	code, err := utils.NumericCode(m.cfg.Length)
	if err != nil {
		return err
	}
	if err := m.cache.Set(ctx, otpKey(id, PurposeRegistration), code, m.cfg.TTL); err != nil {
		return err
	}
	if _, err := m.cache.Incr(ctx, resendKey(id), time.Hour); err != nil {
		return err
	}

	ev := queue.DeliveryEvent{
		Channel:     queue.ChannelSMS,
		Recipient:   id.Value,
		Body:        fmt.Sprintf("Your My Pharma verification code is: %s", code),
		Purpose:     PurposeRegistration,
		RequestedAt: m.now().UTC().Format(time.RFC3339),
	}
	if id.Kind == KindEmail {
		ev.Channel = queue.ChannelEmail
		ev.Subject = "Your verification code"
	}
	if err := m.pub.Publish(ctx, ev); err != nil {
		m.log.Warn("otp: delivery publish failed", zap.String("kind", id.Kind), zap.Error(err))
	}
	return nil
}

// VerifyOTP consumes a valid code and mints a single-use registration token
// bound to the verified identifier. The code is deleted before the token is
// issued, so a replayed code fails even if the token write dies.
func (m *OTPManager) VerifyOTP(ctx context.Context, id Identifier, code string) (string, error) {
	stored, err := m.cache.Get(ctx, otpKey(id, PurposeRegistration))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidOTP
	}
	if err != nil {
		return "", err
	}
	if stored != code {
		return "", ErrInvalidOTP
	}
	if err := m.cache.Del(ctx, otpKey(id, PurposeRegistration)); err != nil {
		return "", err
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return "", err
	}
	if err := m.cache.Set(ctx, regTokenKey(token), id.Kind+"|"+id.Value, m.cfg.RegTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Profile carries the optional fields of the completion form.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// CompleteRegistration exchanges a registration token plus password for a
// verified ACTIVE account. The token is deleted before the user row is
// created, which makes the endpoint replay-proof at the cost of burning the
// token on a failed create (the identifier was verified seconds ago; the
// client restarts the OTP flow).
func (m *OTPManager) CompleteRegistration(ctx context.Context, token, password string, p Profile) (*model.User, error) {
	bound, err := m.cache.Get(ctx, regTokenKey(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidRegistrationToken
	}
	if err != nil {
		return nil, err
	}
	if err := m.cache.Del(ctx, regTokenKey(token)); err != nil {
		return nil, err
	}
	kind, value, ok := strings.Cut(bound, "|")
	if !ok {
		return nil, ErrInvalidRegistrationToken
	}

	if err := CheckPasswordStrength(password, m.cfg.PasswordMinLength); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, m.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		PasswordHash: hash,
		Role:         model.RoleRegisteredUser,
		Status:       model.StatusActive,
		IsVerified:   true,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
	}
	switch kind {
	case KindPhone:
		u.Phone = value
		if p.Email != "" {
			e := NormalizeEmail(p.Email)
			if !emailRe.MatchString(e) {
				return nil, &ValidationError{Field: "email", Reason: "must be a valid email address"}
			}
			u.Email = e
		}
	case KindEmail:
		u.Email = value
		u.Phone = PhonePlaceholder(value)
	default:
		return nil, ErrInvalidRegistrationToken
	}

	uid, err := m.users.Create(ctx, u)
	if errors.Is(err, repository.ErrDuplicateIdentifier) {
		return nil, ErrIdentifierExists
	}
	if err != nil {
		return nil, err
	}
	u.ID = uid

	// Resend budget is spent; a fresh account starts with a clean slate.
	if err := m.cache.Del(ctx, resendKey(Identifier{Kind: kind, Value: value})); err != nil {
		m.log.Warn("otp: resend counter cleanup failed", zap.Error(err))
	}
	return u, nil
}

// RegisterEmail creates a PENDING_VERIFICATION account from email+password
// and queues the verification mail. The phone column receives a synthesized
// placeholder so the unique index holds for both registration flows.
func (m *OTPManager) RegisterEmail(ctx context.Context, email, password, firstName, lastName string) (*model.User, error) {
	e := NormalizeEmail(email)
	if !emailRe.MatchString(e) {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if err := CheckPasswordStrength(password, m.cfg.PasswordMinLength); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, m.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Phone:        PhonePlaceholder(e),
		Email:        e,
		PasswordHash: hash,
		Role:         model.RoleRegisteredUser,
		Status:       model.StatusPendingVerification,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	}
	uid, err := m.users.Create(ctx, u)
	if errors.Is(err, repository.ErrDuplicateIdentifier) {
		return nil, ErrIdentifierExists
	}
	if err != nil {
		return nil, err
	}
	u.ID = uid

	token, err := utils.RandomHex(32)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, emailVerifyKey(token), strconv.FormatUint(uid, 10), m.cfg.EmailTokenTTL); err != nil {
		return nil, err
	}
	ev := queue.DeliveryEvent{
		Channel:     queue.ChannelEmail,
		Recipient:   e,
		Subject:     "Verify your email",
		Body:        fmt.Sprintf("Verify your email address: %s/verify-email?token=%s", m.cfg.FrontendURL, token),
		Purpose:     PurposeEmailVerification,
		RequestedAt: m.now().UTC().Format(time.RFC3339),
	}
	if err := m.pub.Publish(ctx, ev); err != nil {
		m.log.Warn("otp: verification mail publish failed", zap.Error(err))
	}
	return u, nil
}

// VerifyEmail consumes an email-verification token and activates the
// account. Single use, like every other token in the package.
func (m *OTPManager) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	v, err := m.cache.Get(ctx, emailVerifyKey(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidRegistrationToken
	}
	if err != nil {
		return nil, err
	}
	if err := m.cache.Del(ctx, emailVerifyKey(token)); err != nil {
		return nil, err
	}
	uid, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, ErrInvalidRegistrationToken
	}
	if err := m.users.MarkEmailVerified(ctx, uid); err != nil {
		return nil, err
	}
	u, err := m.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidRegistrationToken
	}
	return u, nil
}
