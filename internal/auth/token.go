package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the credential validity window.
const DefaultTokenTTL = 24 * time.Hour

// Token verification errors.
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Identity is the verified subject of a bearer credential.
type Identity struct {
	ID       uuid.UUID
	Username string
}

// Authority mints and verifies bearer credentials.
type Authority struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// AuthorityOption customizes an Authority.
type AuthorityOption func(*Authority)

// WithTTL overrides the token validity window.
func WithTTL(ttl time.Duration) AuthorityOption {
	return func(a *Authority) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) AuthorityOption {
	return func(a *Authority) { a.now = now }
}

// NewAuthority creates an Authority signing with key.
func NewAuthority(key []byte, opts ...AuthorityOption) *Authority {
	a := &Authority{
		key: key,
		ttl: DefaultTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mint issues a signed credential for user. Claims: id, username, iat, exp.
func (a *Authority) Mint(user User) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"id":       user.ID.String(),
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(a.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a credential, returning the identity it
// proves. Expired tokens are ErrTokenExpired; everything else that fails to
// verify is ErrTokenInvalid.
func (a *Authority) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.key, nil
		},
		jwt.WithTimeFunc(a.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	idStr, _ := claims["id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Identity{}, ErrTokenInvalid
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{ID: id, Username: username}, nil
}
