package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mypharma/pharma-backend/internal/auth"
	"github.com/mypharma/pharma-backend/internal/handler"
	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/queue"
	"github.com/mypharma/pharma-backend/internal/repository"
	"github.com/mypharma/pharma-backend/internal/router"
	"github.com/mypharma/pharma-backend/internal/store"
)

// memUsers is an in-memory auth.UserStore for endpoint tests.
type memUsers struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: make(map[uint64]*model.User)} }

func (f *memUsers) find(pred func(*model.User) bool) *model.User {
	for _, u := range f.byID {
		if u.DeletedAt == nil && pred(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *memUsers) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Phone == phone }), nil
}

func (f *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (f *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *memUsers) Create(_ context.Context, u *model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.DeletedAt == nil && (ex.Phone == u.Phone || (u.Email != "" && ex.Email == u.Email)) {
			return 0, repository.ErrDuplicateIdentifier
		}
	}
	f.seq++
	cp := *u
	cp.ID = f.seq
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *memUsers) UpdateLockout(_ context.Context, id uint64, attempts int, lastFailedAt, lockedUntil *time.Time, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.FailedLoginAttempts = attempts
		u.LastFailedLoginAt = lastFailedAt
		u.LockedUntil = lockedUntil
		u.Status = status
	}
	return nil
}

func (f *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *memUsers) MarkEmailVerified(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.IsVerified = true
		u.Status = model.StatusActive
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.DeliveryEvent) error { return nil }

type nopAudit struct{}

func (nopAudit) Record(context.Context, model.AuditLog) error { return nil }

type testEnv struct {
	e     *echo.Echo
	mem   *store.Memory
	users *memUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	mem := store.NewMemory()
	users := newMemUsers()

	otpMgr := auth.NewOTPManager(mem, users, nopPublisher{}, auth.OTPConfig{
		Length:            6,
		TTL:               5 * time.Minute,
		MaxResendPerHour:  3,
		RegTokenTTL:       10 * time.Minute,
		EmailTokenTTL:     24 * time.Hour,
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
		FrontendURL:       "https://app.example.com",
	}, log)
	credMgr := auth.NewCredentialManager(users, mem, nopPublisher{}, nopAudit{}, auth.CredentialConfig{
		LockoutThreshold:  5,
		LockoutDuration:   30 * time.Minute,
		ResetTokenTTL:     time.Hour,
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
		FrontendURL:       "https://app.example.com",
	}, log)
	tokenMgr := auth.NewTokenManager(mem, users, auth.TokenConfig{
		Secret:     "test-secret",
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		Rotate:     true,
	})

	e := echo.New()
	router.Register(e, router.Deps{
		Auth:   handler.NewAuthHandler(otpMgr, credMgr, tokenMgr, users, nopAudit{}, log),
		Admin:  handler.NewAdminHandler(nil, nil, log),
		Tokens: tokenMgr,
		// Products and Redis stay nil: product routes need MySQL and the
		// throttle passes through without Redis.
		Products: handler.NewProductHandler(nil, log),
	})
	return &testEnv{e: e, mem: mem, users: users}
}

func (env *testEnv) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRequestOTPEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/auth/request-otp", `{"phone":"+98 912 345 6789"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Code is in the cache under the normalized identifier.
	_, err := env.mem.Get(context.Background(), "otp:989123456789:REGISTRATION")
	assert.NoError(t, err)
}

func TestRequestOTPRejectsMissingIdentifier(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/auth/request-otp", `{}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["code"])
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/v1/auth/request-otp", `{"phone":"989123456789"}`, "")

	rec := env.do(http.MethodPost, "/v1/auth/verify-otp", `{"phone":"989123456789","otp":"000000"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_otp", decode(t, rec)["code"])
}

func TestFullRegistrationAndSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.do(http.MethodPost, "/v1/auth/request-otp", `{"phone":"989123456789"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	code, err := env.mem.Get(ctx, "otp:989123456789:REGISTRATION")
	require.NoError(t, err)

	rec = env.do(http.MethodPost, "/v1/auth/verify-otp",
		`{"phone":"989123456789","otp":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verify := decode(t, rec)
	regToken, _ := verify["registration_token"].(string)
	require.NotEmpty(t, regToken)
	assert.Equal(t, "phone", verify["identifier_type"])

	rec = env.do(http.MethodPost, "/v1/auth/register/complete",
		`{"registration_token":"`+regToken+`","password":"Str0ngPass!","first_name":"Sara"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	tokens := created["tokens"].(map[string]any)
	access := tokens["access"].(string)
	refresh := tokens["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	rec = env.do(http.MethodGet, "/v1/auth/me", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode(t, rec)
	user := me["user"].(map[string]any)
	assert.Equal(t, "989123456789", user["phone"])
	assert.Equal(t, model.RoleRegisteredUser, user["role"])

	rec = env.do(http.MethodPost, "/v1/auth/login",
		`{"phone":"989123456789","password":"Str0ngPass!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/v1/auth/token/refresh", `{"refresh":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Rotation: the consumed refresh token is dead.
	rec = env.do(http.MethodPost, "/v1/auth/token/refresh", `{"refresh":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_revoked", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/v1/auth/logout", `{}`, access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/v1/auth/me", "", access)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_revoked", decode(t, rec)["code"])
}

func seedActiveUser(t *testing.T, env *testEnv, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = env.users.Create(context.Background(), &model.User{
		Phone:        "989123456789",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.StatusActive,
		IsVerified:   true,
	})
	require.NoError(t, err)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	seedActiveUser(t, env, model.RoleRegisteredUser)

	rec := env.do(http.MethodPost, "/v1/auth/login",
		`{"phone":"989123456789","password":"WrongPass1!"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["code"])
}

func TestLoginLockoutReturns423(t *testing.T) {
	env := newTestEnv(t)
	seedActiveUser(t, env, model.RoleRegisteredUser)

	for i := 0; i < 5; i++ {
		rec := env.do(http.MethodPost, "/v1/auth/login",
			`{"phone":"989123456789","password":"WrongPass1!"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.do(http.MethodPost, "/v1/auth/login",
		`{"phone":"989123456789","password":"Str0ngPass!"}`, "")
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "account_locked", decode(t, rec)["code"])
}

func TestPasswordResetAlwaysOK(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/auth/password-reset", `{"email":"ghost@example.com"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v1/auth/me", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not_authenticated", decode(t, rec)["code"])
}

func TestAdminRoutesEnforceCapabilities(t *testing.T) {
	env := newTestEnv(t)
	seedActiveUser(t, env, model.RoleRegisteredUser)

	rec := env.do(http.MethodPost, "/v1/auth/login",
		`{"phone":"989123456789","password":"Str0ngPass!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tokens := decode(t, rec)["tokens"].(map[string]any)
	access := tokens["access"].(string)

	rec = env.do(http.MethodGet, "/v1/admin/audit", "", access)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/v1/admin/products", `{"name":"x","slug":"x"}`, access)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
