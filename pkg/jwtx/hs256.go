package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks a token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a single shared HMAC key. Only this
// service issues and reads its tokens, so no public key distribution is
// needed.
type HS256 struct {
	key    []byte
	issuer string

	// Now is used for exp and nbf checks. Defaults to time.Now.
	Now func() time.Time
}

// NewHS256 returns a signer/verifier. The key should be at least 32 bytes.
func NewHS256(key []byte, issuer string) (*HS256, error) {
	if len(key) < 32 {
		return nil, errors.New("jwtx: hmac key must be at least 32 bytes")
	}
	return &HS256{key: key, issuer: issuer, Now: time.Now}, nil
}

func (h *HS256) Issuer() string { return h.issuer }

// Sign returns the compact serialisation of claims.
func (h *HS256) Sign(claims Claims) (string, error) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return tok, nil
}

// Verify checks signature, issuer, exp and nbf.
func (h *HS256) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.Now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return h.key, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return Claims{}, ErrIssuer
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// VerifyUse verifies token and additionally requires the given use.
func (h *HS256) VerifyUse(token, use string) (Claims, error) {
	c, err := h.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if err := c.ValidateUse(use); err != nil {
		return Claims{}, err
	}
	return c, nil
}

// SessionVerifier adapts HS256 to Verifier for session tokens only.
type SessionVerifier struct{ *HS256 }

func (v SessionVerifier) Verify(token string) (Claims, error) {
	return v.VerifyUse(token, UseSession)
}
