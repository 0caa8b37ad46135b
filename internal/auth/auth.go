// Package auth issues and verifies the HMAC-signed session tokens the API
// server hands out at login, and hashes ward-account passwords.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Tokens signs and verifies session tokens with a shared HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a token signer. ttl bounds how long an issued token stays
// valid; refresh issues a new one.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(u *model.User) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Username: u.Username,
		Role:     u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// Verify parses and validates a token string, returning its claims.
func (t *Tokens) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		return nil, eris.Wrap(err, "auth: parse token")
	}
	if !token.Valid {
		return nil, eris.New("auth: invalid token")
	}
	return claims, nil
}

// Refresh re-issues a token from still-valid claims, extending the expiry.
func (t *Tokens) Refresh(claims *Claims) (string, error) {
	now := t.now()
	fresh := *claims
	fresh.IssuedAt = jwt.NewNumericDate(now)
	fresh.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, fresh).SignedString(t.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "auth: hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
