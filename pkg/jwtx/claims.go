package jwtx

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Token uses. A token minted for one use is rejected everywhere else, so
// a second factor challenge reference can never be replayed as a session.
const (
	UseSession   = "session"
	UseChallenge = "mfa_challenge"
)

// Authentication method references carried in "amr".
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRMFA      = "mfa"
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrIssuer    = errors.New("jwtx: issuer mismatch")
	ErrUse       = errors.New("jwtx: wrong token use")
	ErrExpired   = errors.New("jwtx: token expired")
)

// Claims are shared by session tokens and challenge references.
type Claims struct {
	jwt.RegisteredClaims

	// Use is UseSession or UseChallenge.
	Use string `json:"use"`

	// SID is the login record id of a session token.
	SID string `json:"sid,omitempty"`

	// AMR lists how the subject authenticated, e.g. ["pwd","otp","mfa"].
	AMR []string `json:"amr,omitempty"`

	// Factor is the second factor a challenge reference expects.
	Factor string `json:"factor,omitempty"`
}

// NewClaims fills the registered claims for a token valid from now for ttl.
func NewClaims(use, subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Use: use,
	}
}

// NewJTI returns a random URL-safe token id.
func NewJTI() string {
	jti, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		panic(err)
	}
	return jti
}

// ValidateUse rejects tokens minted for a different purpose.
func (c *Claims) ValidateUse(expected string) error {
	if c.Use != expected {
		return ErrUse
	}
	return nil
}
