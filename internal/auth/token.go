package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// TokenTTL is how long a session token stays valid after verification.
const TokenTTL = 30 * 24 * time.Hour

const tokenKeyInfo = "reunion session token"

var ErrInvalidToken = errors.New("invalid session token")

// Session is the verified payload of a session token.
type Session struct {
	Phone      string
	VerifiedAt time.Time
	ExpiresAt  time.Time
}

type sessionClaims struct {
	Phone      string `json:"phone"`
	VerifiedAt int64  `json:"verifiedAt"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies self-contained session tokens bound to a
// verified phone number. Nothing is stored server-side.
type TokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type TokenOption func(*TokenCodec)

// WithTokenClock overrides the time source, for tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec derives the signing key from the server secret.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(tokenKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	c := &TokenCodec{
		key: key,
		ttl: TokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue returns a token for phone, valid for TokenTTL.
func (c *TokenCodec) Issue(phone string) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Phone:      phone,
		VerifiedAt: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify checks structure, signature and expiry. Any failure wraps
// ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Phone == "" {
		return Session{}, fmt.Errorf("%w: missing phone", ErrInvalidToken)
	}

	return Session{
		Phone:      claims.Phone,
		VerifiedAt: time.UnixMilli(claims.VerifiedAt),
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}
