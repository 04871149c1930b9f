// Package handler exposes the HTTP surface. Handlers bind JSON, call the
// managers, and translate sentinel errors to the {detail, code} envelope in
// exactly one place.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/auth"
	"github.com/mypharma/pharma-backend/internal/middleware"
	"github.com/mypharma/pharma-backend/internal/model"
)

const handlerTimeout = 5 * time.Second

// AuthHandler serves the OTP, registration, login and token endpoints.
type AuthHandler struct {
	OTP    *auth.OTPManager
	Creds  *auth.CredentialManager
	Tokens *auth.TokenManager
	Users  auth.UserStore
	Audit  auth.AuditSink
	Log    *zap.Logger
}

func NewAuthHandler(otp *auth.OTPManager, creds *auth.CredentialManager, tokens *auth.TokenManager, users auth.UserStore, audit auth.AuditSink, log *zap.Logger) *AuthHandler {
	return &AuthHandler{OTP: otp, Creds: creds, Tokens: tokens, Users: users, Audit: audit, Log: log}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), handlerTimeout)
}

// writeErr is the single sentinel-to-HTTP translation point.
func (h *AuthHandler) writeErr(c echo.Context, err error) error {
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": ve.Reason, "code": "validation_error", "field": ve.Field})
	case errors.Is(err, auth.ErrRateLimitExceeded):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"detail": "too many requests, try again later", "code": "rate_limit_exceeded"})
	case errors.Is(err, auth.ErrInvalidOTP):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "invalid or expired verification code", "code": "invalid_otp"})
	case errors.Is(err, auth.ErrInvalidRegistrationToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "invalid or expired token", "code": "invalid_token"})
	case errors.Is(err, auth.ErrIdentifierExists):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "an account with this identifier already exists", "code": "identifier_exists"})
	case errors.Is(err, auth.ErrAccountLocked):
		return c.JSON(http.StatusLocked, echo.Map{"detail": "account temporarily locked due to failed login attempts", "code": "account_locked"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "invalid credentials", "code": "invalid_credentials"})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token has expired", "code": "token_expired"})
	case errors.Is(err, auth.ErrTokenRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token has been revoked", "code": "token_revoked"})
	case errors.Is(err, auth.ErrTokenInvalid):
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token is invalid", "code": "token_invalid"})
	default:
		h.Log.Error("handler: unexpected error", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error", "code": "internal_error"})
	}
}

// record writes an audit entry with the request's network facts; failures
// are logged, never surfaced.
func (h *AuthHandler) record(c echo.Context, userID *uint64, action, metadata string) {
	e := model.AuditLog{
		UserID:    userID,
		Action:    action,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Metadata:  metadata,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Audit.Record(ctx, e); err != nil {
		h.Log.Warn("audit: write failed", zap.String("action", action), zap.Error(err))
	}
}

type userPayload struct {
	ID         uint64 `json:"id"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	IsVerified bool   `json:"is_verified"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

func toUserPayload(u *model.User) userPayload {
	return userPayload{
		ID:         u.ID,
		Phone:      u.Phone,
		Email:      u.Email,
		Role:       u.Role,
		Status:     u.Status,
		IsVerified: u.IsVerified,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

type tokenPayload struct {
	Access           string `json:"access"`
	Refresh          string `json:"refresh"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

func toTokenPayload(p auth.TokenPair) tokenPayload {
	return tokenPayload{
		Access:           p.Access,
		Refresh:          p.Refresh,
		AccessExpiresAt:  p.AccessExpires.UTC().Format(time.RFC3339),
		RefreshExpiresAt: p.RefreshExpires.UTC().Format(time.RFC3339),
	}
}

type identifierRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// RequestOTP handles POST /v1/auth/request-otp.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req identifierRequest
	if err := c.Bind(&req); err != nil {
		return h.writeErr(c, &auth.ValidationError{Field: "body", Reason: "invalid request body"})
	}
	id, err := auth.NewIdentifier(req.Email, req.Phone)
	if err != nil {
		return h.writeErr(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.OTP.RequestOTP(ctx, id); err != nil {
		return h.writeErr(c, err)
	}
	h.record(c, nil, model.AuditOTPSent, fmt.Sprintf(`{"identifier_type":%q}`, id.Kind))
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP handles POST /v1/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return h.writeErr(c, &auth.ValidationError{Field: "body", Reason: "invalid request body"})
	}
	if req.OTP == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "otp", Reason: "otp is required"})
	}
	id, err := auth.NewIdentifier(req.Email, req.Phone)
	if err != nil {
		return h.writeErr(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	token, err := h.OTP.VerifyOTP(ctx, id, req.OTP)
	if err != nil {
		return h.writeErr(c, err)
	}
	h.record(c, nil, model.AuditOTPVerified, fmt.Sprintf(`{"identifier_type":%q}`, id.Kind))
	return c.JSON(http.StatusOK, echo.Map{
		"message":            "verification successful",
		"registration_token": token,
		"identifier_type":    id.Kind,
		"identifier":         id.Value,
		"expires_in":         int(h.OTP.RegTokenTTL().Seconds()),
	})
}

type completeRegistrationRequest struct {
	RegistrationToken string `json:"registration_token"`
	Password          string `json:"password"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
}

// CompleteRegistration handles POST /v1/auth/register/complete.
func (h *AuthHandler) CompleteRegistration(c echo.Context) error {
	var req completeRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return h.writeErr(c, &auth.ValidationError{Field: "body", Reason: "invalid request body"})
	}
	if req.RegistrationToken == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "registration_token", Reason: "registration_token is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.OTP.CompleteRegistration(ctx, req.RegistrationToken, req.Password, auth.Profile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return h.writeErr(c, err)
	}
	pair, err := h.Tokens.IssuePair(u)
	if err != nil {
		return h.writeErr(c, err)
	}
	uid := u.ID
	h.record(c, &uid, model.AuditRegisterComplete, "")
	return c.JSON(http.StatusCreated, echo.Map{
		"user":   toUserPayload(u),
		"tokens": toTokenPayload(pair),
	})
}

type emailRegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterEmail handles POST /v1/auth/register/email.
func (h *AuthHandler) RegisterEmail(c echo.Context) error {
	var req emailRegisterRequest
	if err := c.Bind(&req); err != nil {
		return h.writeErr(c, &auth.ValidationError{Field: "body", Reason: "invalid request body"})
	}
	if req.Email == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "email", Reason: "email is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.OTP.RegisterEmail(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return h.writeErr(c, err)
	}
	pair, err := h.Tokens.IssuePair(u)
	if err != nil {
		return h.writeErr(c, err)
	}
	uid := u.ID
	h.record(c, &uid, model.AuditRegisterEmail, "")
	return c.JSON(http.StatusCreated, echo.Map{
		"user":   toUserPayload(u),
		"tokens": toTokenPayload(pair),
	})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail handles POST /v1/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "token", Reason: "token is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.OTP.VerifyEmail(ctx, req.Token)
	if err != nil {
		return h.writeErr(c, err)
	}
	uid := u.ID
	h.record(c, &uid, model.AuditEmailVerified, "")
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return h.writeErr(c, &auth.ValidationError{Field: "body", Reason: "invalid request body"})
	}
	if req.Password == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "password", Reason: "password is required"})
	}
	id, err := auth.NewIdentifier(req.Email, req.Phone)
	if err != nil {
		return h.writeErr(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Creds.Login(ctx, id, req.Password)
	if err != nil {
		return h.writeErr(c, err)
	}
	pair, err := h.Tokens.IssuePair(u)
	if err != nil {
		return h.writeErr(c, err)
	}
	uid := u.ID
	h.record(c, &uid, model.AuditLogin, "")
	return c.JSON(http.StatusOK, echo.Map{
		"user":   toUserPayload(u),
		"tokens": toTokenPayload(pair),
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh handles POST /v1/auth/token/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "refresh", Reason: "refresh token is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	pair, u, err := h.Tokens.Refresh(ctx, req.Refresh)
	if err != nil {
		return h.writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":   toUserPayload(u),
		"tokens": toTokenPayload(pair),
	})
}

// Logout handles POST /v1/auth/logout. The access token comes from the Auth
// middleware; the refresh token rides in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req) // missing body still logs out the access token

	accessToken, _ := c.Get(middleware.CtxAccessToken).(string)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tokens.Logout(ctx, accessToken, req.Refresh); err != nil {
		return h.writeErr(c, err)
	}
	uid := middleware.UserID(c)
	h.record(c, &uid, model.AuditLogout, "")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordReset handles POST /v1/auth/password-reset. The response is 200
// whether or not the address is known.
func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "email", Reason: "email is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Creds.RequestPasswordReset(ctx, req.Email); err != nil {
		h.Log.Error("password-reset: request failed", zap.Error(err))
	}
	h.record(c, nil, model.AuditPasswordResetRequest, "")
	return c.JSON(http.StatusOK, echo.Map{"message": "if the address exists, a reset link has been sent"})
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// PasswordResetConfirm handles POST /v1/auth/password-reset/confirm.
func (h *AuthHandler) PasswordResetConfirm(c echo.Context) error {
	var req passwordResetConfirmRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return h.writeErr(c, &auth.ValidationError{Field: "token", Reason: "token is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Creds.ConfirmPasswordReset(ctx, req.Token, req.Password)
	if err != nil {
		return h.writeErr(c, err)
	}
	uid := u.ID
	h.record(c, &uid, model.AuditPasswordResetDone, "")
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.UserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return h.writeErr(c, err)
	}
	if u == nil {
		return h.writeErr(c, auth.ErrTokenInvalid)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":         toUserPayload(u),
		"capabilities": auth.Capabilities(u.Role),
	})
}
