// Package auth issues and verifies session tokens and guards tenant access.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

const issuer = "ledgerdesk"

var (
	ErrInvalidToken       = errors.New("invalid session token")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SessionClaims is the payload carried in a session cookie. Tenant
// memberships ride along so the guard does not hit the database on every
// request; tokens are short-lived enough that revocation waits for expiry.
type SessionClaims struct {
	UserID    int64   `json:"uid"`
	Role      string  `json:"role"`
	TenantIDs []int64 `json:"tenants,omitempty"`
	jwt.RegisteredClaims
}

// MemberOf mirrors core.User.MemberOf for the token payload.
func (c SessionClaims) MemberOf(tenantID int64) bool {
	if c.Role == string(core.RoleAdmin) {
		return true
	}
	for _, id := range c.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}

// Manager signs and verifies session tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	expiry time.Duration
}

func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{secret: []byte(secret), expiry: expiry}
}

// Issue creates a signed session token for the user.
func (m *Manager) Issue(u core.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:    u.ID,
		Role:      string(u.Role),
		TenantIDs: u.TenantIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (m *Manager) Verify(tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the configured session lifetime, for cookie max-age.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash against a login attempt.
func CheckPassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
