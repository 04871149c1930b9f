package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/store"
)

// Token types carried in the "typ" claim so an access token can never be
// replayed against the refresh endpoint or vice versa.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig carries signing material and lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration // default 24h
	RefreshTTL time.Duration // default 7d
	Rotate     bool          // rotate-on-use for refresh tokens, default true
}

// Claims is the decoded, validated view of one of our tokens.
type Claims struct {
	UserID    uint64
	Role      string
	JTI       string
	ExpiresAt time.Time
}

// TokenPair is an access/refresh pair as returned to clients.
type TokenPair struct {
	Access         string
	Refresh        string
	AccessExpires  time.Time
	RefreshExpires time.Time
}

// TokenManager signs HS256 token pairs and keeps the jti blacklist that
// makes revocation work for otherwise self-contained tokens. The blacklist
// entry lives exactly as long as the token would have, so revocation state
// never grows without bound.
type TokenManager struct {
	cache store.Ephemeral
	users UserStore
	cfg   TokenConfig
	now   func() time.Time
}

func NewTokenManager(cache store.Ephemeral, users UserStore, cfg TokenConfig) *TokenManager {
	return &TokenManager{cache: cache, users: users, cfg: cfg, now: time.Now}
}

func blacklistKey(jti string) string { return "jwt_blacklist:" + jti }

func (m *TokenManager) sign(u *model.User, typ string, ttl time.Duration) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(u.ID, 10),
		"role": u.Role,
		"typ":  typ,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssuePair mints a fresh access/refresh pair carrying the user's id and
// role as claims.
func (m *TokenManager) IssuePair(u *model.User) (TokenPair, error) {
	access, aexp, err := m.sign(u, tokenTypeAccess, m.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := m.sign(u, tokenTypeRefresh, m.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, AccessExpires: aexp, RefreshExpires: rexp}, nil
}

// parse validates signature, expiry and token type, and extracts claims.
func (m *TokenManager) parse(raw, wantTyp string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.cfg.Secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if typ, _ := mc["typ"].(string); typ != wantTyp {
		return Claims{}, ErrTokenInvalid
	}
	sub, _ := mc["sub"].(string)
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	role, _ := mc["role"].(string)
	jti, _ := mc["jti"].(string)
	if jti == "" {
		return Claims{}, ErrTokenInvalid
	}
	expNum, err := mc.GetExpirationTime()
	if err != nil || expNum == nil {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{UserID: uid, Role: role, JTI: jti, ExpiresAt: expNum.Time}, nil
}

func (m *TokenManager) isBlacklisted(ctx context.Context, jti string) (bool, error) {
	return m.cache.Exists(ctx, blacklistKey(jti))
}

// blacklist marks a jti revoked for the remainder of its natural lifetime.
func (m *TokenManager) blacklist(ctx context.Context, c Claims) error {
	ttl := c.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil // already dead on its own
	}
	return m.cache.Set(ctx, blacklistKey(c.JTI), "1", ttl)
}

// Refresh validates a refresh token and issues a new pair. With rotation
// enabled the presented token is blacklisted first, so reusing it fails
// with ErrTokenRevoked.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (TokenPair, *model.User, error) {
	c, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, nil, err
	}
	revoked, err := m.isBlacklisted(ctx, c.JTI)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if revoked {
		return TokenPair{}, nil, ErrTokenRevoked
	}

	u, err := m.users.GetByID(ctx, c.UserID)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return TokenPair{}, nil, ErrTokenInvalid
	}

	if m.cfg.Rotate {
		if err := m.blacklist(ctx, c); err != nil {
			return TokenPair{}, nil, err
		}
	}
	pair, err := m.IssuePair(u)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, u, nil
}

// Logout blacklists both presented tokens for their remaining lifetimes.
// Tokens that fail to parse are skipped silently; an expired token needs no
// blacklist entry.
func (m *TokenManager) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if c, err := m.parse(accessToken, tokenTypeAccess); err == nil {
		if err := m.blacklist(ctx, c); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if c, err := m.parse(refreshToken, tokenTypeRefresh); err == nil {
			if err := m.blacklist(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate fully checks an access token, including the blacklist lookup —
// the single stateful step in request authentication.
func (m *TokenManager) Validate(ctx context.Context, accessToken string) (Claims, error) {
	c, err := m.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := m.isBlacklisted(ctx, c.JTI)
	if err != nil {
		return Claims{}, err
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	return c, nil
}
